package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/corebank/ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Cache mirrors terminal ledger rows in Redis so retried keys can be
// answered without a database round trip. Entries expire after the
// configured TTL; expiry only evicts the cache, the ledger row remains
// the durable source of truth.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache returns a Cache with the given TTL.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(key string) string {
	return "transfer:" + key
}

// Get returns the cached terminal record for the key if present.
func (c *Cache) Get(ctx context.Context, key string) (domain.TransferRecord, bool, error) {
	val, err := c.rdb.Get(ctx, cacheKey(key)).Result()
	if err == redis.Nil {
		return domain.TransferRecord{}, false, nil
	} else if err != nil {
		return domain.TransferRecord{}, false, err
	}

	var rec domain.TransferRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return domain.TransferRecord{}, false, err
	}

	return rec, true, nil
}

// Set stores a terminal record under its idempotency key. Non-terminal
// records are ignored.
func (c *Cache) Set(ctx context.Context, rec domain.TransferRecord) error {
	if !rec.Status.Terminal() {
		return nil
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, cacheKey(rec.IdempotencyKey), b, c.ttl).Err()
}
