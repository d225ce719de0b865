package port

import (
	"context"
	"time"
)

// Cache is a get/set-with-TTL capability backing the sticky decision
// session. Races are tolerated: two concurrent misses may both write and
// last-write-wins is acceptable. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterStore is an atomic increment-with-TTL capability backing the
// rate-limit windows. The TTL is applied when the key is first created and
// the increment must not be read-then-write.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
