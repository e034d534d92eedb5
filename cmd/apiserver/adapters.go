package main

import (
	"context"

	stderrors "errors"

	"github.com/leaselens/leaselens/internal/config"
	"github.com/leaselens/leaselens/internal/infrastructure/database/redis"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// cachedMarketProvider serves market context from the Redis cache.  The cache
// is populated out of band by the market data importer; a miss means no
// comparable data is known for the VIN yet, which the pipeline treats as
// scoring without market-relative rules.
type cachedMarketProvider struct {
	cache *redis.MarketCache
}

func newCachedMarketProvider(client *redis.Client, cfg config.RedisConfig, logger logging.Logger) *cachedMarketProvider {
	opts := []redis.MarketCacheOption{}
	if cfg.KeyPrefix != "" {
		opts = append(opts, redis.WithPrefix(cfg.KeyPrefix+"market:"))
	}
	if cfg.DefaultTTL > 0 {
		opts = append(opts, redis.WithTTL(cfg.DefaultTTL))
	}
	return &cachedMarketProvider{cache: redis.NewMarketCache(client, logger, opts...)}
}

func (p *cachedMarketProvider) MarketFor(ctx context.Context, vin string) (*contract.MarketContext, error) {
	market, err := p.cache.Get(ctx, vin)
	if err != nil {
		if stderrors.Is(err, redis.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return market, nil
}
