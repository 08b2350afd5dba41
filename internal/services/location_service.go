package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estatehub/gateway/internal/models"
)

// ILocationService defines the interface for location operations.
type ILocationService interface {
	SearchLocations(ctx context.Context, query string, countryCode *string, limit int) ([]models.Location, error)
	// ResolvePlace returns the coordinates of the most populous match for
	// place, or nil when nothing matches.
	ResolvePlace(ctx context.Context, place string) (*models.GeoPoint, error)
}

const (
	locationsCollection = "locations"
	resolveCandidates   = 10
)

// locationService implements ILocationService.
type locationService struct {
	db *mongo.Database
}

// NewLocationService creates a new LocationService.
func NewLocationService(db *mongo.Database) ILocationService {
	return &locationService{db: db}
}

var locationProjection = bson.D{
	{Key: "name", Value: 1},
	{Key: "alt_names", Value: 1},
	{Key: "country_code", Value: 1},
	{Key: "context", Value: 1},
	{Key: "population", Value: 1},
	{Key: "location", Value: 1},
	{Key: "score", Value: bson.M{"$meta": "textScore"}},
}

// SearchLocations runs a text search over name and alt_names, best match
// first and larger places first among equal matches.
func (s *locationService) SearchLocations(ctx context.Context, query string, countryCode *string, limit int) ([]models.Location, error) {
	filter := bson.M{"$text": bson.M{"$search": query}}
	if countryCode != nil {
		filter["country_code"] = *countryCode
	}
	opts := options.Find().
		SetProjection(locationProjection).
		SetSort(bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "population", Value: -1},
		}).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(locationsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("location search %q: %w", query, err)
	}
	defer cursor.Close(ctx)

	results := []models.Location{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode location search results: %w", err)
	}
	return results, nil
}

// ResolvePlace prefers a location whose name or alternate name equals place,
// then the best search hit. Hits without coordinates are skipped.
func (s *locationService) ResolvePlace(ctx context.Context, place string) (*models.GeoPoint, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, nil
	}
	candidates, err := s.SearchLocations(ctx, place, nil, resolveCandidates)
	if err != nil {
		return nil, err
	}

	var fallback *models.GeoPoint
	for i := range candidates {
		pt, ok := models.PointFromGeoJSON(candidates[i].Location)
		if !ok {
			continue
		}
		if candidates[i].Matches(place) {
			return &pt, nil
		}
		if fallback == nil {
			fallback = &pt
		}
	}
	return fallback, nil
}
