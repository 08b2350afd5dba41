package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"estatehub/gateway/internal/feed"
	"estatehub/gateway/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FeedStore keeps feed state in Redis. State expires after an idle TTL; the
// loading flag is a separate key set with SETNX so it survives a crashed
// request for at most lockTTL.
type FeedStore struct {
	rdb      *redis.Client
	stateTTL time.Duration
	lockTTL  time.Duration
	logger   *zap.Logger
}

var _ feed.Store = (*FeedStore)(nil)

func NewFeedStore(rdb *redis.Client, stateTTL, lockTTL time.Duration, logger *zap.Logger) *FeedStore {
	return &FeedStore{rdb: rdb, stateTTL: stateTTL, lockTTL: lockTTL, logger: logger}
}

func feedKey(key string) string     { return "feed:" + key }
func feedLockKey(key string) string { return "feed:" + key + ":loading" }

func (s *FeedStore) Load(ctx context.Context, key string) (*feed.State, error) {
	raw, err := s.rdb.Get(ctx, feedKey(key)).Bytes()
	return s.decode(key, raw, err)
}

func (s *FeedStore) decode(key string, raw []byte, err error) (*feed.State, error) {
	if errors.Is(err, redis.Nil) {
		return feed.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feed state: %w", err)
	}

	var st feed.State
	if err := json.Unmarshal(raw, &st); err != nil || st.Version != feed.StateVersion {
		s.logger.Warn("discarding unreadable feed state",
			zap.String("key", key), zap.Int("version", st.Version), zap.Error(err))
		return feed.NewState(), nil
	}
	if st.Items == nil {
		st.Items = []models.Listing{}
	}
	return &st, nil
}

const saveAttempts = 3

// Save writes st under WATCH so that a Reset landing between the generation
// check and the write aborts the transaction and is checked again.
func (s *FeedStore) Save(ctx context.Context, key string, st *feed.State, expect int64) error {
	st.Version = feed.StateVersion
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode feed state: %w", err)
	}

	k := feedKey(key)
	for attempt := 0; attempt < saveAttempts; attempt++ {
		err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			b, getErr := tx.Get(ctx, k).Bytes()
			cur, err := s.decode(key, b, getErr)
			if err != nil {
				return err
			}
			if cur.Generation != expect {
				return feed.ErrStaleResult
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, k, raw, s.stateTTL)
				return nil
			})
			return err
		}, k)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil, errors.Is(err, feed.ErrStaleResult):
		return err
	default:
		return fmt.Errorf("failed to save feed state: %w", err)
	}
}

func (s *FeedStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, feedKey(key), feedLockKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete feed state: %w", err)
	}
	return nil
}

func (s *FeedStore) TryLock(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, feedLockKey(key), token, s.lockTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to set feed loading flag: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// releaseLock deletes KEYS[1] only while it still holds ARGV[1].
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Unlock clears the flag only if token still owns it. A flag that expired
// and was taken by another request is left alone.
func (s *FeedStore) Unlock(ctx context.Context, key, token string) error {
	n, err := releaseLock.Run(ctx, s.rdb, []string{feedLockKey(key)}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to clear feed loading flag: %w", err)
	}
	if n == 0 {
		s.logger.Warn("feed loading flag was no longer held", zap.String("key", key))
	}
	return nil
}
