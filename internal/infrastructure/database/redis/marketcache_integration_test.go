//go:build integration

package redis_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/leaselens/leaselens/internal/config"
	"github.com/leaselens/leaselens/internal/infrastructure/database/redis"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

func setupCache(t *testing.T, opts ...redis.MarketCacheOption) *redis.MarketCache {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := redis.NewClient(ctx, config.RedisConfig{
		Addr: strings.TrimPrefix(uri, "redis://"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewMarketCache(client, nil, opts...)
}

func TestMarketCacheRoundTrip(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	market := &contract.MarketContext{
		MarketAveragePrice: contract.Float(28500),
		ComparableAPR:      contract.Float(5.4),
	}
	require.NoError(t, cache.Set(ctx, "4T1G11AK5PU123456", market))

	got, err := cache.Get(ctx, "4T1G11AK5PU123456")
	require.NoError(t, err)
	require.NotNil(t, got.MarketAveragePrice)
	assert.InDelta(t, 28500, *got.MarketAveragePrice, 1e-9)
	require.NotNil(t, got.ComparableAPR)
	assert.InDelta(t, 5.4, *got.ComparableAPR, 1e-9)
}

func TestMarketCacheMiss(t *testing.T) {
	cache := setupCache(t)

	_, err := cache.Get(context.Background(), "5YJ3E1EA7KF317000")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestMarketCacheGetOrLoadCollapsesConcurrentMisses(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(context.Context, string) (*contract.MarketContext, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return &contract.MarketContext{ComparableAPR: contract.Float(6.1)}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cache.GetOrLoad(ctx, "1HGCM82633A004352", loader)
			assert.NoError(t, err)
			assert.NotNil(t, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "one loader call for concurrent misses")

	// The loaded value is now cached; a further load must not call again.
	_, err := cache.GetOrLoad(ctx, "1HGCM82633A004352", loader)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMarketCacheLoaderErrorNotCached(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	boom := errors.New(errors.ErrCodeExternalService, "pricing feed down")
	_, err := cache.GetOrLoad(ctx, "WAUZZZ4G6BN123456", func(context.Context, string) (*contract.MarketContext, error) {
		return nil, boom
	})
	require.Error(t, err)

	// The failure must not poison the key: a working loader succeeds next.
	got, err := cache.GetOrLoad(ctx, "WAUZZZ4G6BN123456", func(context.Context, string) (*contract.MarketContext, error) {
		return &contract.MarketContext{ComparableAPR: contract.Float(4.9)}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, got.ComparableAPR)
}

func TestMarketCacheInvalidate(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "JH4KA7561PC008269", &contract.MarketContext{}))
	require.NoError(t, cache.Invalidate(ctx, "JH4KA7561PC008269"))

	_, err := cache.Get(ctx, "JH4KA7561PC008269")
	assert.True(t, errors.IsNotFound(err))
}
