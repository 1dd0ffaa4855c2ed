package ports

import (
	"context"
	"time"
)

// Cache is a shared key/value store with per-entry expiry. Implementations
// must be safe for concurrent use; Set on a single key is atomic.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ClearExpired(ctx context.Context) error
}
