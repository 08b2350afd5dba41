package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"estatehub/gateway/internal/db"
	"estatehub/gateway/internal/models"
)

// ISnapshotService persists the durable slice of each user's client state.
type ISnapshotService interface {
	// Get returns the user's snapshot, or an empty one if none is stored.
	Get(ctx context.Context, userID string) (*models.ClientSnapshot, error)
	// SaveConversations replaces the list only if the snapshot is still at
	// revision, and returns ErrSnapshotConflict otherwise.
	SaveConversations(ctx context.Context, userID string, revision int64, conversations []models.Conversation) error
	SaveProfile(ctx context.Context, userID string, profile *models.Profile) error
	Delete(ctx context.Context, userID string) error
}

const snapshotsCollection = "client_snapshots"

// snapshotMigration upgrades a raw document by exactly one version.
type snapshotMigration func(doc bson.M) bson.M

// snapshotMigrations is keyed by the version being migrated from.
var snapshotMigrations = map[int]snapshotMigration{
	// v1 kept the profile under "user".
	1: func(doc bson.M) bson.M {
		if u, ok := doc["user"]; ok {
			doc["profile"] = u
			delete(doc, "user")
		}
		return doc
	},
}

type snapshotService struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewSnapshotService(db *mongo.Database, logger *zap.Logger) ISnapshotService {
	return &snapshotService{db: db, logger: logger}
}

func emptySnapshot(userID string) *models.ClientSnapshot {
	return &models.ClientSnapshot{
		UserID:        userID,
		SchemaVersion: models.CurrentSnapshotVersion,
		Conversations: []models.Conversation{},
	}
}

func snapshotVersion(doc bson.M) int {
	switch v := doc["schema_version"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 1
	}
}

// migrateSnapshot brings doc up to the current version. It refuses documents
// from a newer build instead of guessing at their shape.
func migrateSnapshot(doc bson.M) (bson.M, bool, error) {
	version := snapshotVersion(doc)
	if version > models.CurrentSnapshotVersion {
		return nil, false, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, version)
	}
	migrated := false
	for version < models.CurrentSnapshotVersion {
		m, ok := snapshotMigrations[version]
		if !ok {
			return nil, false, fmt.Errorf("no snapshot migration from version %d", version)
		}
		doc = m(doc)
		version++
		migrated = true
	}
	doc["schema_version"] = version
	return doc, migrated, nil
}

func (s *snapshotService) Get(ctx context.Context, userID string) (*models.ClientSnapshot, error) {
	collection := s.db.Collection(snapshotsCollection)

	var doc bson.M
	err := collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return emptySnapshot(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for user %s: %w", userID, err)
	}

	doc, migrated, err := migrateSnapshot(doc)
	if err != nil {
		return nil, err
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode snapshot: %w", err)
	}
	var snap models.ClientSnapshot
	if err := bson.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for user %s: %w", userID, err)
	}
	if snap.Conversations == nil {
		snap.Conversations = []models.Conversation{}
	}

	if migrated {
		if _, err := collection.ReplaceOne(ctx, bson.M{"_id": userID}, snap); err != nil {
			s.logger.Warn("failed to persist migrated snapshot", zap.String("user_id", userID), zap.Error(err))
		} else {
			s.logger.Info("migrated snapshot", zap.String("user_id", userID), zap.Int("version", snap.SchemaVersion))
		}
	}
	return &snap, nil
}

func (s *snapshotService) upsert(ctx context.Context, userID string, set bson.M) error {
	collection := s.db.Collection(snapshotsCollection)
	set["schema_version"] = models.CurrentSnapshotVersion
	set["updated_at"] = time.Now().UTC()
	update := bson.M{"$set": set}
	opts := options.Update().SetUpsert(true)

	// Two requests upserting a new user race on _id; the loser retries as an update.
	return db.Upsert(ctx, func(ctx context.Context) error {
		_, err := collection.UpdateOne(ctx, bson.M{"_id": userID}, update, opts)
		return err
	})
}

func (s *snapshotService) SaveConversations(ctx context.Context, userID string, revision int64, conversations []models.Conversation) error {
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	collection := s.db.Collection(snapshotsCollection)
	update := bson.M{
		"$set": bson.M{
			"conversations":  conversations,
			"schema_version": models.CurrentSnapshotVersion,
			"updated_at":     time.Now().UTC(),
		},
		"$inc": bson.M{"revision": 1},
	}

	// Revision 0 may be a snapshot that does not exist yet, or one written
	// before revisions were tracked.
	if revision == 0 {
		filter := bson.M{"_id": userID, "revision": bson.M{"$in": bson.A{0, nil}}}
		_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if db.IsDuplicateKey(err) {
			return ErrSnapshotConflict
		}
		if err != nil {
			return fmt.Errorf("failed to save conversations for user %s: %w", userID, err)
		}
		return nil
	}

	res, err := collection.UpdateOne(ctx, bson.M{"_id": userID, "revision": revision}, update)
	if err != nil {
		return fmt.Errorf("failed to save conversations for user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return ErrSnapshotConflict
	}
	return nil
}

func (s *snapshotService) SaveProfile(ctx context.Context, userID string, profile *models.Profile) error {
	if err := s.upsert(ctx, userID, bson.M{"profile": profile}); err != nil {
		return fmt.Errorf("failed to save profile for user %s: %w", userID, err)
	}
	return nil
}

func (s *snapshotService) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.Collection(snapshotsCollection).DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("failed to delete snapshot for user %s: %w", userID, err)
	}
	return nil
}
