package market

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PriceCache keeps recently fetched USD prices so the display endpoints do
// not hammer the market-data service. Swap rate lookups never read it.
type PriceCache struct {
	client *redis.Client
}

func NewPriceCache(addr, password string) *PriceCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return &PriceCache{client: rdb}
}

func (c *PriceCache) Get(ctx context.Context, symbol string) (string, error) {
	return c.client.Get(ctx, "price:"+symbol).Result()
}

func (c *PriceCache) Set(ctx context.Context, symbol, value string, ttl time.Duration) error {
	return c.client.Set(ctx, "price:"+symbol, value, ttl).Err()
}
