// Package cache holds the optional Redis-backed report cache and event
// publisher. A nil *Cache is valid and disables both.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// trackedKeysSet holds every report key written, so Invalidate can drop
	// them without a KEYS scan.
	trackedKeysSet = "report:keys"

	// generationKey is bumped by every Invalidate. A build only stores its
	// result if the generation it started under is still current.
	generationKey = "report:gen"

	// SalesChannel receives sale lifecycle events as JSON.
	SalesChannel = "bizledger:events:sales"

	lockTTL = 10 * time.Second
)

// errStale aborts a cache write whose build raced an invalidation.
var errStale = errors.New("report generation changed during build")

// Cache is a JSON report cache with single-flight rebuilds.
type Cache struct {
	client *redis.Client
	locker *redislock.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Connect dials Redis at addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 20,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	return client, nil
}

// New wraps client. A nil client returns a nil *Cache, which is a no-op.
func New(client *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		client: client,
		locker: redislock.New(client),
		ttl:    ttl,
		log:    log,
	}
}

// ReportKey is report:{kind}:{year}:{month}. Month 0 means the whole year.
func ReportKey(kind string, year, month int) string {
	return fmt.Sprintf("report:%s:%d:%d", kind, year, month)
}

// Load returns the cached value under key, or builds, stores and returns it.
// Concurrent misses on the same key are collapsed behind a redislock; a
// caller that cannot obtain the lock builds without caching. Redis failures
// never fail the call, only build errors do. A result built while an
// Invalidate ran is returned but not stored.
func Load[T any](ctx context.Context, c *Cache, key string, build func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return build(ctx)
	}

	var v T
	if ok := c.get(ctx, key, &v); ok {
		return v, nil
	}

	lock, err := c.locker.Obtain(ctx, "lock:"+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	})
	switch {
	case errors.Is(err, redislock.ErrNotObtained):
		c.log.Warn("report lock not obtained; building uncached", zap.String("key", key))
		return build(ctx)
	case err != nil:
		c.log.Warn("report lock failed; building uncached", zap.String("key", key), zap.Error(err))
		return build(ctx)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			c.log.Warn("failed to release report lock", zap.String("key", key), zap.Error(err))
		}
	}()

	// Another holder may have filled the key while we waited.
	if ok := c.get(ctx, key, &v); ok {
		return v, nil
	}

	gen, ok := c.generation(ctx)
	v, err = build(ctx)
	if err != nil {
		return v, err
	}
	if ok {
		c.set(ctx, key, v, gen)
	}
	return v, nil
}

// Invalidate bumps the report generation and drops every tracked report key.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Warn("failed to bump report generation", zap.Error(err))
	}
	keys, err := c.client.SMembers(ctx, trackedKeysSet).Result()
	if err != nil {
		c.log.Warn("failed to list cached reports", zap.Error(err))
		return
	}
	keys = append(keys, trackedKeysSet)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("failed to invalidate cached reports", zap.Error(err))
		return
	}
	c.log.Debug("report cache invalidated", zap.Int("keys", len(keys)-1))
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.log.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		c.log.Warn("report cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// generation reads the current report generation. A missing key is 0.
func (c *Cache) generation(ctx context.Context) (int64, bool) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("failed to read report generation", zap.Error(err))
		return 0, false
	}
	return gen, true
}

// set stores v under key if the report generation is still gen. WATCH makes
// the check and the write atomic against a concurrent Invalidate.
func (c *Cache) set(ctx context.Context, key string, v any, gen int64) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("report is not cacheable", zap.String("key", key), zap.Error(err))
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, c.ttl)
			pipe.SAdd(ctx, trackedKeysSet, key)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("report changed while building; not cached", zap.String("key", key))
	case err != nil:
		c.log.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}
