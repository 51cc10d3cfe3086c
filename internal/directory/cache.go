package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"suvidha/pkg/domain"
)

// CachedReader is a read-through Redis cache over a Reader. Lookup misses and
// cache errors fall through to the inner reader; the cache is an optimization,
// never the source of truth. Negative results are not cached so a newly seeded
// department is visible immediately.
type CachedReader struct {
	inner  Reader
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedReader(inner Reader, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedReader {
	return &CachedReader{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CachedReader) GetDepartment(ctx context.Context, id domain.DepartmentID) (*Department, error) {
	key := "directory:dept:" + string(id)
	var cached Department
	if c.fetch(ctx, key, &cached) {
		return &cached, nil
	}

	d, err := c.inner.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, d)
	return d, nil
}

func (c *CachedReader) GetSubDepartment(ctx context.Context, id domain.SubDepartmentID) (*SubDepartment, error) {
	key := "directory:subdept:" + string(id)
	var cached SubDepartment
	if c.fetch(ctx, key, &cached) {
		return &cached, nil
	}

	sd, err := c.inner.GetSubDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, sd)
	return sd, nil
}

// Invalidate drops cached entries after a repair pass deactivates records.
func (c *CachedReader) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "directory cache invalidation failed", "error", err)
	}
}

func (c *CachedReader) fetch(ctx context.Context, key string, target any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "directory cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		c.logger.WarnContext(ctx, "directory cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedReader) put(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "directory cache write failed", "key", key, "error", err)
	}
}
