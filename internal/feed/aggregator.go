package feed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"estatehub/gateway/internal/logging"
	"estatehub/gateway/internal/models"
)

// ListingSource is the upstream listings API.
type ListingSource interface {
	NearbyListings(ctx context.Context, page int, at models.GeoPoint) (*models.ListingPage, error)
	AllListings(ctx context.Context, page int) (*models.ListingPage, error)
}

// Result reports what a call to Next did.
type Result struct {
	Requests  []Request `json:"requests"`
	Appended  int       `json:"appended"`
	Exhausted bool      `json:"exhausted"`
	State     *State    `json:"state"`
}

// Aggregator drives feed state through the upstream listing source.
type Aggregator struct {
	source ListingSource
	store  Store
	logger *zap.Logger
}

func NewAggregator(source ListingSource, store Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{source: source, store: store, logger: logging.OrNop(logger)}
}

// Next loads the next page of the feed identified by key. loc is the current
// device position, or nil when the geolocation provider has none.
//
// An empty nearby page switches the feed to all mode and fetches all page 1
// in the same call. Errors from upstream are returned unchanged after being
// recorded on the state; cursors do not move.
func (a *Aggregator) Next(ctx context.Context, key string, loc *models.GeoPoint) (*Result, error) {
	token, locked, err := a.store.TryLock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to set loading flag for feed %s: %w", key, err)
	}
	if !locked {
		return nil, ErrFetchInProgress
	}
	defer func() {
		if err := a.store.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			a.logger.Warn("failed to clear feed loading flag", zap.String("feed", key), zap.Error(err))
		}
	}()

	st, err := a.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed %s: %w", key, err)
	}
	// We hold the flag, so a stored Loading is left over from an interrupted request.
	st.Loading = false

	res := &Result{State: st}
	for {
		req, err := st.Plan(loc)
		if errors.Is(err, ErrExhausted) {
			if err := a.save(ctx, key, st); err != nil {
				return nil, err
			}
			res.Exhausted = true
			res.State = st
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		if err := a.save(ctx, key, st); err != nil {
			return nil, err
		}

		page, fetchErr := a.fetch(ctx, req)

		// Re-read so that a Reset issued while the request was in flight is seen.
		cur, err := a.store.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to reload feed %s: %w", key, err)
		}

		if fetchErr != nil {
			if err := cur.Fail(req, fetchErr); err != nil {
				a.logger.Info("discarding error for reset feed", zap.String("feed", key), zap.Error(fetchErr))
				return nil, err
			}
			if err := a.save(ctx, key, cur); err != nil {
				a.logger.Warn("failed to record feed error", zap.String("feed", key), zap.Error(err))
			}
			a.logger.Warn("feed page request failed",
				zap.String("feed", key), zap.String("mode", string(req.Mode)), zap.Int("page", req.Page), zap.Error(fetchErr))
			return nil, fetchErr
		}

		added, err := cur.Apply(req, page)
		if err != nil {
			a.logger.Info("discarding page for reset feed", zap.String("feed", key), zap.Int("page", req.Page))
			return nil, err
		}
		if err := a.save(ctx, key, cur); err != nil {
			if errors.Is(err, ErrStaleResult) {
				a.logger.Info("discarding page for reset feed", zap.String("feed", key), zap.Int("page", req.Page))
			}
			return nil, err
		}
		a.logger.Debug("feed page applied",
			zap.String("feed", key), zap.String("mode", string(req.Mode)), zap.Int("page", req.Page), zap.Int("added", added))

		res.Requests = append(res.Requests, req)
		res.Appended += added
		res.State = cur

		if req.Mode == ModeNearby && (page == nil || len(page.Items) == 0) {
			st = cur
			continue
		}
		return res, nil
	}
}

func (a *Aggregator) fetch(ctx context.Context, req Request) (*models.ListingPage, error) {
	if req.Mode == ModeNearby {
		return a.source.NearbyListings(ctx, req.Page, *req.Location)
	}
	return a.source.AllListings(ctx, req.Page)
}

// save writes st unless the feed was reset since st was loaded. Plan, Apply
// and Fail leave Generation alone, so st.Generation is the loaded one.
func (a *Aggregator) save(ctx context.Context, key string, st *State) error {
	err := a.store.Save(ctx, key, st, st.Generation)
	if err == nil || errors.Is(err, ErrStaleResult) {
		return err
	}
	return fmt.Errorf("failed to save feed %s: %w", key, err)
}

const resetAttempts = 3

// Reset clears the feed back to page 1 of nearby mode. Concurrent resets are
// retried against the newer generation.
func (a *Aggregator) Reset(ctx context.Context, key string) (*State, error) {
	var err error
	for attempt := 0; attempt < resetAttempts; attempt++ {
		var st *State
		st, err = a.store.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load feed %s: %w", key, err)
		}
		loaded := st.Generation
		st.Reset()
		err = a.store.Save(ctx, key, st, loaded)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, ErrStaleResult) {
			return nil, fmt.Errorf("failed to save feed %s: %w", key, err)
		}
	}
	return nil, fmt.Errorf("failed to reset feed %s: %w", key, err)
}

// Get returns the feed without fetching.
func (a *Aggregator) Get(ctx context.Context, key string) (*State, error) {
	st, err := a.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed %s: %w", key, err)
	}
	return st, nil
}

// Discard removes the feed entirely.
func (a *Aggregator) Discard(ctx context.Context, key string) error {
	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete feed %s: %w", key, err)
	}
	return nil
}
