// Package cache wraps Redis for JSON cache-aside reads. A Cache without a
// client behaves as an always-empty cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrDisabled  = errors.New("cache disabled")
)

type Cache struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New connects when opts.Addr is set and returns a disabled cache otherwise.
func New(opts Options) *Cache {
	if opts.Addr == "" {
		return &Cache{prefix: opts.Prefix}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Cache{client: client, prefix: opts.Prefix}
}

func NewWithClient(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) key(key string) string {
	return c.prefix + key
}

func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get unmarshals the cached value into dest or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if !c.Enabled() {
		return ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.key(key)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Version reads a counter maintained by Bump; an unset counter is 0.
func (c *Cache) Version(ctx context.Context, key string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	v, err := c.client.Get(ctx, c.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version %s: %w", key, err)
	}
	return v, nil
}

// Bump increments the counter read by Version. It carries no expiry so a
// version is never reused.
func (c *Cache) Bump(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Incr(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis bump %s: %w", key, err)
	}
	return nil
}

// Incr bumps a fixed-window counter. The first hit in a window creates the key
// with its expiry; later increments keep it.
func (c *Cache) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if !c.Enabled() {
		return 0, 0, ErrDisabled
	}
	full := c.key(key)
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, full, 0, window)
		incr = pipe.Incr(ctx, full)
		ttl = pipe.PTTL(ctx, full)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return int(incr.Val()), ttl.Val(), nil
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
