package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// ErrCacheMiss reports that no market context is cached for the key.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "market context not cached")

// MarketLoader resolves fresh market context for a VIN when the cache misses.
// Implementations talk to the external pricing collaborator.
type MarketLoader func(ctx context.Context, vin string) (*contract.MarketContext, error)

// MarketCache caches per-VIN market context.  Concurrent cache misses for the
// same VIN are collapsed into a single loader call.
type MarketCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// MarketCacheOption customises a MarketCache.
type MarketCacheOption func(*MarketCache)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) MarketCacheOption {
	return func(c *MarketCache) { c.prefix = prefix }
}

// WithTTL overrides the entry TTL.
func WithTTL(ttl time.Duration) MarketCacheOption {
	return func(c *MarketCache) { c.ttl = ttl }
}

// NewMarketCache constructs a MarketCache.
func NewMarketCache(client *Client, logger logging.Logger, opts ...MarketCacheOption) *MarketCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &MarketCache{
		client: client,
		logger: logger.Named("marketcache"),
		prefix: "leaselens:market:",
		ttl:    15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MarketCache) key(vin string) string { return c.prefix + vin }

// jitterTTL spreads expiry by +/-10% so a batch of offers cached together
// does not expire together.
func (c *MarketCache) jitterTTL() time.Duration {
	jitter := float64(c.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return c.ttl + time.Duration(jitter)
}

// Get returns the cached market context for vin, or ErrCacheMiss.
func (c *MarketCache) Get(ctx context.Context, vin string) (*contract.MarketContext, error) {
	data, err := c.client.rdb.Get(ctx, c.key(vin)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "market context read failed")
	}

	var market contract.MarketContext
	if err := json.Unmarshal(data, &market); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		c.logger.Warn("corrupt market context entry", logging.String("vin", vin), logging.Err(err))
		return nil, ErrCacheMiss
	}
	return &market, nil
}

// Set stores the market context for vin.
func (c *MarketCache) Set(ctx context.Context, vin string, market *contract.MarketContext) error {
	data, err := json.Marshal(market)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "market context marshal failed")
	}
	if err := c.client.rdb.Set(ctx, c.key(vin), data, c.jitterTTL()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "market context write failed")
	}
	return nil
}

// GetOrLoad returns the cached market context for vin, invoking loader on a
// miss and caching the result.  Concurrent misses for the same VIN share one
// loader invocation.  Loader errors are returned uncached so a transient
// collaborator failure does not poison the key.
func (c *MarketCache) GetOrLoad(ctx context.Context, vin string, loader MarketLoader) (*contract.MarketContext, error) {
	if market, err := c.Get(ctx, vin); err == nil {
		return market, nil
	} else if !errors.IsNotFound(err) {
		c.logger.Warn("market cache unavailable, loading directly",
			logging.String("vin", vin), logging.Err(err))
	}

	v, err, _ := c.group.Do(vin, func() (interface{}, error) {
		market, err := loader(ctx, vin)
		if err != nil {
			return nil, err
		}
		if setErr := c.Set(ctx, vin, market); setErr != nil {
			// Serving the loaded value matters more than caching it.
			c.logger.Warn("market context cache write failed",
				logging.String("vin", vin), logging.Err(setErr))
		}
		return market, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*contract.MarketContext), nil
}

// Invalidate drops the cached entry for vin.
func (c *MarketCache) Invalidate(ctx context.Context, vin string) error {
	if err := c.client.rdb.Del(ctx, c.key(vin)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "market context delete failed")
	}
	return nil
}
