package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"estatehub/gateway/internal/db"
	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/testutil"
)

func seedLocations(t *testing.T, database *mongo.Database) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.EnsureIndexes(ctx, database, zap.NewNop()))
	_, err := database.Collection(locationsCollection).InsertMany(ctx, []interface{}{
		models.Location{ID: 1, Name: "Wellington", CountryCode: "NZ", Population: 215000,
			Location: models.GeoPoint{Latitude: -41.29, Longitude: 174.78}.GeoJSON()},
		models.Location{ID: 2, Name: "Wellington", CountryCode: "AU", Population: 5000,
			Location: models.GeoPoint{Latitude: -32.55, Longitude: 148.94}.GeoJSON()},
		models.Location{ID: 3, Name: "Nowhere", CountryCode: "NZ", Population: 10},
		models.Location{ID: 4, Name: "Port Nicholson", AltNames: []string{"Te Whanganui-a-Tara"}, CountryCode: "NZ", Population: 100,
			Location: models.GeoPoint{Latitude: -41.3, Longitude: 174.8}.GeoJSON()},
		models.Location{ID: 5, Name: "Port Chalmers", CountryCode: "NZ", Population: 3000,
			Location: models.GeoPoint{Latitude: -45.82, Longitude: 170.62}.GeoJSON()},
	})
	require.NoError(t, err)
}

func TestLocationService_Search(t *testing.T) {
	db := testutil.SetupTestDB(t, "testdb_location_service", locationsCollection)
	seedLocations(t, db)
	svc := NewLocationService(db)

	res, err := svc.SearchLocations(context.Background(), "wellington", nil, 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "NZ", res[0].CountryCode)

	au := "AU"
	res, err = svc.SearchLocations(context.Background(), "wellington", &au, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 2, res[0].ID)
}

func TestLocationService_ResolvePlace(t *testing.T) {
	db := testutil.SetupTestDB(t, "testdb_location_resolve", locationsCollection)
	seedLocations(t, db)
	svc := NewLocationService(db)
	ctx := context.Background()

	pt, err := svc.ResolvePlace(ctx, "Wellington")
	require.NoError(t, err)
	require.NotNil(t, pt)
	assert.InDelta(t, -41.29, pt.Latitude, 1e-9)
	assert.InDelta(t, 174.78, pt.Longitude, 1e-9)

	// The exact name beats the larger partial match.
	pt, err = svc.ResolvePlace(ctx, "port nicholson")
	require.NoError(t, err)
	require.NotNil(t, pt)
	assert.InDelta(t, -41.3, pt.Latitude, 1e-9)

	pt, err = svc.ResolvePlace(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Nil(t, pt)

	pt, err = svc.ResolvePlace(ctx, "  ")
	require.NoError(t, err)
	assert.Nil(t, pt)
}
