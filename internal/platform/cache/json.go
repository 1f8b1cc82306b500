package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSON wraps Redis based caching of JSON documents with a namespace version
// that can be bumped to invalidate every key at once.
type JSON struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewJSON instantiates the cache helper. A nil client disables caching.
func NewJSON(client *redis.Client, namespace string, ttl time.Duration) *JSON {
	return &JSON{client: client, namespace: namespace, ttl: ttl}
}

func (c *JSON) versionKey() string {
	return c.namespace + ":version"
}

// Version returns the current namespace version, initialising when missing.
func (c *JSON) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, c.versionKey(), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, c.versionKey(), ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *JSON) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil {
		return strings.Join(parts, ":"), nil
	}
	joined := strings.Join(append([]string{c.namespace}, parts...), ":")
	if c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. hit reports
// whether the value came from Redis.
func (c *JSON) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) (hit bool, err error) {
	if loader == nil {
		return false, errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return true, json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return false, err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return false, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if c != nil && c.client != nil && c.ttl > 0 {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return false, err
		}
	}
	return false, json.Unmarshal(raw, dest)
}

// Bump invalidates every key of the namespace by incrementing its version.
func (c *JSON) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey()).Err()
}
