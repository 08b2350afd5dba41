package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"estatehub/gateway/internal/feed"
	"estatehub/gateway/internal/models"
)

// ErrInvalidLocation is returned for coordinates outside WGS84 bounds or a
// latitude given without a longitude.
var ErrInvalidLocation = errors.New("invalid location")

// LocationQuery is how a client describes where it is. Coordinates win over
// a place name; with neither the feed runs in all mode.
type LocationQuery struct {
	Latitude  *float64
	Longitude *float64
	Place     string
}

// IFeedService drives the per-user listing feed.
type IFeedService interface {
	Next(ctx context.Context, userID string, q LocationQuery) (*feed.Result, error)
	Reset(ctx context.Context, userID string) (*feed.State, error)
	Get(ctx context.Context, userID string) (*feed.State, error)
	Discard(ctx context.Context, userID string) error
	ResolveLocation(ctx context.Context, q LocationQuery) (*models.GeoPoint, error)
}

type feedService struct {
	aggregator *feed.Aggregator
	locations  ILocationService
	logger     *zap.Logger
}

func NewFeedService(aggregator *feed.Aggregator, locations ILocationService, logger *zap.Logger) IFeedService {
	return &feedService{aggregator: aggregator, locations: locations, logger: logger}
}

func (s *feedService) ResolveLocation(ctx context.Context, q LocationQuery) (*models.GeoPoint, error) {
	if q.Latitude != nil || q.Longitude != nil {
		if q.Latitude == nil || q.Longitude == nil {
			return nil, ErrInvalidLocation
		}
		pt := models.GeoPoint{Latitude: *q.Latitude, Longitude: *q.Longitude}
		if !pt.Valid() {
			return nil, ErrInvalidLocation
		}
		return &pt, nil
	}
	if q.Place == "" || s.locations == nil {
		return nil, nil
	}
	pt, err := s.locations.ResolvePlace(ctx, q.Place)
	if err != nil {
		// An unresolvable place degrades to all mode rather than failing the page.
		s.logger.Warn("place lookup failed", zap.String("place", q.Place), zap.Error(err))
		return nil, nil
	}
	return pt, nil
}

func (s *feedService) Next(ctx context.Context, userID string, q LocationQuery) (*feed.Result, error) {
	loc, err := s.ResolveLocation(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Next(ctx, userID, loc)
}

func (s *feedService) Reset(ctx context.Context, userID string) (*feed.State, error) {
	return s.aggregator.Reset(ctx, userID)
}

func (s *feedService) Get(ctx context.Context, userID string) (*feed.State, error) {
	return s.aggregator.Get(ctx, userID)
}

func (s *feedService) Discard(ctx context.Context, userID string) error {
	return s.aggregator.Discard(ctx, userID)
}
