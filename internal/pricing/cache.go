package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "helios:quote:"

// QuoteCache is a TTL-bounded Redis cache for resolved quotes. It only ever
// stores positive results; a miss or a Redis failure simply falls through to
// the repository.
type QuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuoteCache constructs QuoteCache.
func NewQuoteCache(client *redis.Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{client: client, ttl: ttl}
}

func (c *QuoteCache) Get(ctx context.Context, key string) (Quote, bool) {
	data, err := c.client.Get(ctx, quoteKeyPrefix+key).Bytes()
	if err != nil {
		return Quote{}, false
	}
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return Quote{}, false
	}
	return q, true
}

func (c *QuoteCache) Set(ctx context.Context, key string, q Quote) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, quoteKeyPrefix+key, data, c.ttl).Err()
}

// Purge drops every cached quote. Called after price-affecting sync batches.
func (c *QuoteCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, quoteKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
