package ports

import (
	"context"
	"time"
)

// CredentialCache is a TTL key-value accelerator for login calls and user
// lookups. It is never the system of record: absence always falls back to the
// store, and presence returns stale-tolerant data.
type CredentialCache interface {
	// Get returns the value and true when the key is present and unexpired.
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPrefix removes every key starting with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// CacheInvalidator queues fire-and-forget cache invalidation. There is no
// transactional guarantee linking a store write and the matching delete; a
// miss is repaired by TTL expiry.
type CacheInvalidator interface {
	Invalidate(keys ...string)
	InvalidatePrefix(prefix string)
}
