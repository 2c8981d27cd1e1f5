package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-be/internal/config"
	"portfolio-be/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Environment:     "test",
		StoreDriver:     config.DriverSQLite,
		SQLitePath:      filepath.Join(dir, "visits.db"),
		VisitDailyLimit: 10,
		VisitWindow:     24 * time.Hour,
		VisitCountTTL:   30 * time.Second,
		ContentDir:      filepath.Join(dir, "content"),
		DefaultLocale:   "en",
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		redisURL    string
		expectRedis bool
	}{
		{
			name:        "Container with Redis configured",
			redisURL:    "redis://" + mr.Addr() + "/0",
			expectRedis: true,
		},
		{
			name:        "Container without Redis configured",
			redisURL:    "",
			expectRedis: false,
		},
		{
			name:        "Container with invalid Redis URL",
			redisURL:    "invalid://redis-url",
			expectRedis: false, // Redis client initialization fails but container creation succeeds
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.RedisURL = tt.redisURL

			c, err := New(context.Background(), cfg, logger.NewNop())
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, tt.expectRedis, c.HasRedis())
			assert.NotNil(t, c.GetAuthService())
			assert.NotNil(t, c.GetVisitService())
			assert.NotNil(t, c.GetContentService())
			assert.Same(t, cfg, c.GetConfig())

			health := c.Health(context.Background())
			assert.NoError(t, health["store"])
			if tt.expectRedis {
				assert.NoError(t, health["redis"])
			} else {
				assert.NotContains(t, health, "redis")
			}
		})
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "mysql"

	_, err := New(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestContainer_VisitRoundTrip(t *testing.T) {
	c, err := New(context.Background(), testConfig(t), logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	result, err := c.GetVisitService().RecordVisit(ctx, "203.0.113.5")
	require.NoError(t, err)
	assert.True(t, result.Decision.Admitted)
	assert.Equal(t, int64(1), result.Count)

	count, err := c.GetVisitService().GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestContainer_SharedRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.GetVisitService().GetCount(ctx)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "visits:count")
}
