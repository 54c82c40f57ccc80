// Package redisad is an optional lookup cache: hotel-code→id and the
// known competitor label set per hotel. Everything still works with the
// cache disabled; entries only save an upsert round trip.
package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"rms_sync/internal/adapters/observability"
)

type Cache struct {
	c   *redis.Client
	ttl time.Duration
}

// New connects a cache. defaultTTL applies to entries stored without an
// explicit ttl; zero keeps them until evicted.
func New(addr, pass string, db int, defaultTTL time.Duration) *Cache {
	return &Cache{
		c:   redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		ttl: defaultTTL,
	}
}

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

// Set stores v as JSON; ttlSec <= 0 falls back to the default TTL.
func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	d := time.Duration(ttlSec) * time.Second
	if ttlSec <= 0 {
		d = r.ttl
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, d).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

func (r *Cache) Close() error { return r.c.Close() }
