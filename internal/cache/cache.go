// Package cache provides the keyed stores backing the listings and valuation
// caches. Entries are JSON blobs; freshness is enforced by callers from the
// timestamps embedded in the cached records, so a store that never expires
// anything is still correct.
package cache

import (
	"context"
	"time"
)

// Store is the read-many/write-many keyed store contract. Writes are
// idempotent upserts keyed by the natural cache key; last write wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
