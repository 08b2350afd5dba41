package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/testutil"
)

func TestConfigService_SetGet(t *testing.T) {
	db := testutil.SetupTestDB(t, "testdb_config_service", configCollection, apiConfigCollection)
	svc := NewConfigService(db, nil, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))

	assert.Equal(t, 20, svc.GetInt(ctx, KeyFeedPageSize, 20))

	require.NoError(t, svc.SetConfigValue(ctx, KeyFeedPageSize, 40))
	require.NoError(t, svc.SetConfigValue(ctx, "motd", "hello"))
	require.NoError(t, svc.SetConfigValue(ctx, "maintenance", true))
	require.NoError(t, svc.SetConfigValue(ctx, "lock_ttl", int64(45)))

	// A fresh instance sees the persisted values.
	other := NewConfigService(db, nil, zap.NewNop())
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, 40, other.GetInt(ctx, KeyFeedPageSize, 20))
	assert.Equal(t, "hello", other.GetString(ctx, "motd", ""))
	assert.True(t, other.GetBool(ctx, "maintenance", false))
	assert.Equal(t, 45*time.Second, other.GetDuration(ctx, "lock_ttl", time.Second))

	// Wrong type falls back to the default.
	assert.Equal(t, 7, other.GetInt(ctx, "motd", 7))

	require.NoError(t, svc.SetConfigValue(ctx, "motd", nil))
	_, err := svc.Get(ctx, "motd")
	assert.Error(t, err)
}

func TestConfigService_EndpointConfig(t *testing.T) {
	db := testutil.SetupTestDB(t, "testdb_config_service_endpoints", configCollection, apiConfigCollection)
	ctx := context.Background()
	_, err := db.Collection(apiConfigCollection).InsertOne(ctx, models.EndpointConfig{
		Method:        "POST",
		Path:          "/v1/feed/next",
		RateLimitSoft: &models.RateLimitConfig{BucketSize: 2, TokenRefillRate: 1},
	})
	require.NoError(t, err)

	svc := NewConfigService(db, nil, zap.NewNop())
	require.NoError(t, svc.Load(ctx))

	ec := svc.GetEndpointConfig(ctx, "POST", "/v1/feed/next")
	require.NotNil(t, ec)
	assert.Equal(t, 2, ec.RateLimitSoft.BucketSize)
	assert.Nil(t, ec.RateLimitHard)
	assert.Nil(t, svc.GetEndpointConfig(ctx, "GET", "/v1/feed"))
}

func TestConfigService_SubscribeReloads(t *testing.T) {
	db := testutil.SetupTestDB(t, "testdb_config_service_pubsub", configCollection, apiConfigCollection)
	rdb := testutil.SetupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	follower := NewConfigService(db, rdb, zap.NewNop())
	require.NoError(t, follower.Load(ctx))
	done := make(chan error, 1)
	go func() { done <- follower.SubscribeToChanges(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writer := NewConfigService(db, rdb, zap.NewNop())
	require.NoError(t, writer.SetConfigValue(ctx, KeyNearbyRadiusKM, 50))

	assert.Eventually(t, func() bool {
		return follower.GetInt(ctx, KeyNearbyRadiusKM, 25) == 50
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
