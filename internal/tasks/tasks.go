package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"estatehub/gateway/internal/auth"
	"estatehub/gateway/internal/config"
	"estatehub/gateway/internal/services"
	"estatehub/gateway/internal/storage"
	"estatehub/gateway/internal/upstream"
)

// TaskType defines the type of a background task.
const (
	TypeConversationSync = "conversations:sync"
	TypeMediaNormalize   = "media:normalize"
)

// syncTokenTTL bounds the token minted for one background sync.
const syncTokenTTL = 5 * time.Minute

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer implements services.TaskEnqueuer on an asynq client.
type Enqueuer struct {
	client *asynq.Client
	logger *zap.Logger
}

var _ services.TaskEnqueuer = (*Enqueuer)(nil)

func NewEnqueuer(client *asynq.Client, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{client: client, logger: logger}
}

// ConversationSyncPayload names the user whose conversations are pulled.
type ConversationSyncPayload struct {
	UserID string `json:"user_id"`
}

// MediaNormalizePayload names an uploaded photo to normalise in place.
type MediaNormalizePayload struct {
	S3Key string `json:"s3_key"`
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", taskType, err)
	}
	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		e.logger.Debug("task already queued", zap.String("type", taskType))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	e.logger.Debug("task enqueued", zap.String("type", taskType), zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

// EnqueueConversationSync schedules a full pull. Repeated refreshes within a
// minute collapse into one task.
func (e *Enqueuer) EnqueueConversationSync(ctx context.Context, userID string) error {
	return e.enqueue(ctx, TypeConversationSync, ConversationSyncPayload{UserID: userID},
		asynq.Queue("default"), asynq.MaxRetry(3), asynq.Unique(time.Minute))
}

func (e *Enqueuer) EnqueueMediaNormalize(ctx context.Context, key string) error {
	return e.enqueue(ctx, TypeMediaNormalize, MediaNormalizePayload{S3Key: key},
		asynq.Queue("images"), asynq.MaxRetry(5))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg           *config.Config
	conversations services.IConversationService
	configService services.IConfigService
	storage       storage.IS3Storage
	logger        *zap.Logger
}

func NewTaskProcessor(
	cfg *config.Config,
	conversations services.IConversationService,
	configService services.IConfigService,
	storageService storage.IS3Storage,
	logger *zap.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:           cfg,
		conversations: conversations,
		configService: configService,
		storage:       storageService,
		logger:        logger,
	}
}

// SetupServer configures an Asynq server and its handlers for the given
// worker roles. It returns nil when neither role is enabled.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		logger.Info("no worker roles enabled, task server not started")
		return nil, nil
	}

	queues := map[string]int{}
	mux := asynq.NewServeMux()

	if isBgWorker {
		queues["critical"] = 6
		queues["default"] = 3
		queues["low"] = 1
		mux.HandleFunc(TypeConversationSync, processor.HandleConversationSyncTask)
		logger.Info("registered background task handlers")
	}

	if isImageWorker {
		queues["images"] = 5
		mux.HandleFunc(TypeMediaNormalize, processor.HandleMediaNormalizeTask)
		logger.Info("registered image task handlers")
	}

	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: queues,
			Logger: logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed",
					zap.String("type", task.Type()), zap.ByteString("payload", task.Payload()), zap.Error(err))
			}),
		},
	)
	return srv, mux
}

// --- Task Handlers ---

// HandleConversationSyncTask pulls every conversation page for a user on
// their behalf, merging each into the stored list.
func (p *TaskProcessor) HandleConversationSyncTask(ctx context.Context, t *asynq.Task) error {
	var payload ConversationSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal conversation sync payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.UserID == "" {
		return fmt.Errorf("conversation sync payload has no user: %w", asynq.SkipRetry)
	}

	token, err := auth.GenerateJWT(payload.UserID, p.cfg.JwtSecret, syncTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to mint sync token: %v: %w", err, asynq.SkipRetry)
	}
	ctx = upstream.WithToken(ctx, token)

	maxPages := p.cfg.ConversationSyncMaxPages
	if p.configService != nil {
		maxPages = p.configService.GetInt(ctx, services.KeyConversationSyncMaxPages, maxPages)
	}

	pages, err := p.conversations.SyncAll(ctx, payload.UserID, maxPages)
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return fmt.Errorf("upstream refused sync for user %s: %v: %w", payload.UserID, err, asynq.SkipRetry)
		}
		p.logger.Warn("conversation sync failed",
			zap.String("user_id", payload.UserID), zap.Int("pages", pages), zap.Error(err))
		return err
	}

	p.logger.Info("conversation sync finished", zap.String("user_id", payload.UserID), zap.Int("pages", pages))
	return nil
}

// HandleMediaNormalizeTask shrinks an uploaded photo to the configured
// maximum dimension, overwriting it in place.
func (p *TaskProcessor) HandleMediaNormalizeTask(ctx context.Context, t *asynq.Task) error {
	var payload MediaNormalizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal media task payload: %v: %w", err, asynq.SkipRetry)
	}
	log := p.logger.With(zap.String("key", payload.S3Key))

	imgData, contentType, err := p.storage.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// Upload never completed or the key is wrong.
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image: %w", err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Warn("image exceeds max size", zap.Int("bytes", len(imgData)), zap.Int64("max", maxSizeBytes))
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if uint(width) <= maxDim && uint(height) <= maxDim {
		log.Debug("image within bounds", zap.String("format", format), zap.Int("width", width), zap.Int("height", height))
		return nil
	}

	resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	// Re-encode as JPEG
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to re-encode resized image: %w", err)
	}
	if int64(buf.Len()) > maxSizeBytes {
		return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
	}

	if err := p.storage.PutObject(ctx, payload.S3Key, buf.Bytes(), "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	log.Info("image normalised",
		zap.String("from_type", contentType),
		zap.Int("width", resized.Bounds().Dx()), zap.Int("height", resized.Bounds().Dy()))
	return nil
}
