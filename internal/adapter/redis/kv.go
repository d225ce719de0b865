// Package redisadapter backs the sticky decision cache and the rate-limit
// counters with Redis.
package redisadapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adserver/internal/core/port"
)

// KV adapts a go-redis client to the port.Cache and port.CounterStore
// interfaces. Both are best-effort stores on the serving path; callers
// treat errors as misses.
type KV struct {
	client *redis.Client
}

func NewKV(client *redis.Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := k.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Incr bumps the counter and sets its expiry only on first touch, so the
// window starts at the first event and the counter dies with it.
func (k *KV) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := k.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", key, err)
	}
	return incr.Val(), nil
}

var (
	_ port.Cache        = (*KV)(nil)
	_ port.CounterStore = (*KV)(nil)
)
