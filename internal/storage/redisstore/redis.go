// Package redisstore stores each browser namespace as a Redis hash with a
// sliding TTL, so abandoned browsers age out on their own.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tumioparbe/web/internal/storage"
)

const defaultPrefix = "web:store:"

// Backend is a storage.Backend on top of a go-redis client
type Backend struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// New wraps an existing client. An empty prefix falls back to "web:store:";
// ttl <= 0 keeps namespaces forever.
func New(rdb *redis.Client, prefix string, ttl time.Duration) *Backend {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Backend{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Open connects using a redis:// URL and pings the server.
func Open(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*Backend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return New(rdb, prefix, ttl), nil
}

func (b *Backend) key(namespace string) string { return b.prefix + namespace }

func (b *Backend) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	v, err := b.rdb.HGet(ctx, b.key(namespace), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget: %w", err)
	}
	return v, nil
}

func (b *Backend) Set(ctx context.Context, namespace, key string, value []byte) error {
	k := b.key(namespace)
	pipe := b.rdb.TxPipeline()
	pipe.HSet(ctx, k, key, value)
	if b.ttl > 0 {
		pipe.Expire(ctx, k, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, namespace, key string) error {
	if err := b.rdb.HDel(ctx, b.key(namespace), key).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (b *Backend) Close() error { return b.rdb.Close() }
