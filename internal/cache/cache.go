// Package cache keeps rendered taxpayer views in Redis so repeated reads of
// an unchanged record skip the database. Every successful write invalidates
// the affected record's entry; correctness never depends on the cache.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const viewKeyPrefix = "taxadmin:view:"

// ViewCache wraps a go-redis client. A nil *ViewCache is valid and behaves
// as an always-miss cache, so callers need no nil checks of their own.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at the given URL. An empty URL means caching is not
// configured and returns nil.
func New(url string, ttl time.Duration) (*ViewCache, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &ViewCache{client: client, ttl: ttl}, nil
}

// GetView returns the cached serialized view for a record id, if present.
func (c *ViewCache) GetView(ctx context.Context, id string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, viewKeyPrefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

// SetView stores a serialized view. Failures are logged and swallowed; a
// cold cache is never an error.
func (c *ViewCache) SetView(ctx context.Context, id string, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, viewKeyPrefix+id, payload, c.ttl).Err(); err != nil {
		log.Println("WARNING: view cache set failed:", err)
	}
}

// Invalidate drops the cached view of a record after a successful write.
func (c *ViewCache) Invalidate(ctx context.Context, id string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, viewKeyPrefix+id).Err(); err != nil {
		log.Println("WARNING: view cache invalidation failed:", err)
	}
}

// Close releases the underlying connection.
func (c *ViewCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
