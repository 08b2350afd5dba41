package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"estatehub/gateway/internal/models"
)

// Runtime-tunable keys. Defaults come from the environment.
const (
	KeyFeedPageSize             = "FEED_PAGE_SIZE"
	KeyNearbyRadiusKM           = "NEARBY_RADIUS_KM"
	KeyConversationSyncMaxPages = "CONVERSATION_SYNC_MAX_PAGES"
)

// IConfigService defines the interface for accessing runtime configuration.
type IConfigService interface {
	Load(ctx context.Context) error
	Get(ctx context.Context, key string) (interface{}, error)
	GetInt(ctx context.Context, key string, defaultValue int) int
	GetString(ctx context.Context, key string, defaultValue string) string
	GetBool(ctx context.Context, key string, defaultValue bool) bool
	GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration
	SetConfigValue(ctx context.Context, key string, value interface{}) error
	SubscribeToChanges(ctx context.Context) error
	// GetEndpointConfig returns rate limit overrides for a route, or nil.
	GetEndpointConfig(ctx context.Context, method, path string) *models.EndpointConfig
}

const (
	configCollection    = "configuration"
	apiConfigCollection = "api_endpoints_config"
	configUpdateChannel = "config_updates"
)

// configService implements IConfigService.
type configService struct {
	db       *mongo.Database
	rdb      *redis.Client
	logger   *zap.Logger
	cache    map[string]interface{}
	apiCache map[string]*models.EndpointConfig
	mutex    sync.RWMutex
}

// NewConfigService creates a new ConfigService. Call Load before serving and
// run SubscribeToChanges to follow updates made by other instances.
func NewConfigService(db *mongo.Database, rdb *redis.Client, logger *zap.Logger) IConfigService {
	return &configService{
		db:       db,
		rdb:      rdb,
		logger:   logger,
		cache:    make(map[string]interface{}),
		apiCache: make(map[string]*models.EndpointConfig),
	}
}

// ConfigEntry represents a document in the configuration collection.
type ConfigEntry struct {
	Key   string      `bson:"key"`
	Value interface{} `bson:"value"`
}

// Load fetches all config entries and endpoint configs from the DB and
// replaces the in-memory caches.
func (s *configService) Load(ctx context.Context) error {
	cursor, err := s.db.Collection(configCollection).Find(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to query config collection: %w", err)
	}
	defer cursor.Close(ctx)

	newCache := make(map[string]interface{})
	for cursor.Next(ctx) {
		var entry ConfigEntry
		if err := cursor.Decode(&entry); err != nil {
			s.logger.Warn("failed to decode config entry", zap.Error(err))
			continue
		}
		newCache[entry.Key] = entry.Value
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("error iterating config cursor: %w", err)
	}

	newAPICache := make(map[string]*models.EndpointConfig)
	apiCursor, err := s.db.Collection(apiConfigCollection).Find(ctx, bson.M{})
	if err != nil {
		s.logger.Error("failed to query endpoint configs", zap.Error(err))
	} else {
		defer apiCursor.Close(ctx)
		for apiCursor.Next(ctx) {
			var entry models.EndpointConfig
			if err := apiCursor.Decode(&entry); err != nil {
				s.logger.Warn("failed to decode endpoint config", zap.Error(err))
				continue
			}
			newAPICache[models.EndpointKey(entry.Method, entry.Path)] = &entry
		}
		if err := apiCursor.Err(); err != nil {
			s.logger.Error("error iterating endpoint config cursor", zap.Error(err))
		}
	}

	s.mutex.Lock()
	s.cache = newCache
	s.apiCache = newAPICache
	s.mutex.Unlock()

	s.logger.Info("loaded runtime config",
		zap.Int("entries", len(newCache)), zap.Int("endpoints", len(newAPICache)))
	return nil
}

// Get retrieves a cached configuration value.
func (s *configService) Get(ctx context.Context, key string) (interface{}, error) {
	s.mutex.RLock()
	val, exists := s.cache[key]
	s.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("config key '%s' not found", key)
	}
	return val, nil
}

func (s *configService) GetString(ctx context.Context, key string, defaultValue string) string {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if strVal, ok := val.(string); ok {
		return strVal
	}
	s.logger.Warn("config value is not a string, using default", zap.String("key", key))
	return defaultValue
}

func (s *configService) GetInt(ctx context.Context, key string, defaultValue int) int {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	// MongoDB might store numbers as float64 or int32/64
	switch v := val.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		s.logger.Warn("config value is not an integer, using default",
			zap.String("key", key), zap.String("type", fmt.Sprintf("%T", val)))
		return defaultValue
	}
}

func (s *configService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if boolVal, ok := val.(bool); ok {
		return boolVal
	}
	s.logger.Warn("config value is not a boolean, using default", zap.String("key", key))
	return defaultValue
}

// GetDuration retrieves a config value stored as seconds.
func (s *configService) GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	seconds := s.GetInt(ctx, key, -1)
	if seconds < 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

// SubscribeToChanges reloads the caches whenever another instance publishes
// an update. It returns when ctx is cancelled.
func (s *configService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		s.logger.Info("redis not configured, config updates will not be followed")
		return nil
	}

	pubsub := s.rdb.Subscribe(ctx, configUpdateChannel)
	defer pubsub.Close()

	// Wait for confirmation that subscription is created before publishing anything.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", configUpdateChannel, err)
	}

	ch := pubsub.Channel()
	s.logger.Info("subscribed to config updates", zap.String("channel", configUpdateChannel))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.logger.Info("config update notification", zap.String("key", msg.Payload))
			if err := s.Load(ctx); err != nil {
				s.logger.Error("failed to reload config after notification", zap.Error(err))
			}
		}
	}
}

// SetConfigValue upserts a config value and notifies other instances.
// A nil value deletes the key.
func (s *configService) SetConfigValue(ctx context.Context, key string, value interface{}) error {
	collection := s.db.Collection(configCollection)
	filter := bson.M{"key": key}

	var err error
	if value == nil {
		_, err = collection.DeleteOne(ctx, filter)
	} else {
		update := bson.M{"$set": bson.M{"key": key, "value": value}}
		_, err = collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("failed to write config key '%s': %w", key, err)
	}

	s.mutex.Lock()
	if value == nil {
		delete(s.cache, key)
	} else {
		s.cache[key] = value
	}
	s.mutex.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, configUpdateChannel, key).Err(); err != nil {
			s.logger.Warn("failed to publish config update", zap.String("key", key), zap.Error(err))
		}
	}
	s.logger.Info("updated config key", zap.String("key", key))
	return nil
}

func (s *configService) GetEndpointConfig(ctx context.Context, method, path string) *models.EndpointConfig {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.apiCache[models.EndpointKey(method, path)]
}
