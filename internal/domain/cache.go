package domain

import (
	"context"
	"time"
)

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SnapshotSink receives every freshly fetched value snapshot (shared mirror,
// cold archive).
type SnapshotSink interface {
	StoreSnapshot(ctx context.Context, snap ValueSnapshot) error
}

// SnapshotSource supplies a previously stored snapshot. It returns
// ErrNotFound when it has none.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (ValueSnapshot, error)
}

// ProcessedSet remembers counterparties that were already scanned.
type ProcessedSet interface {
	IsProcessed(ctx context.Context, userID int64) (bool, error)
	MarkProcessed(ctx context.Context, userID int64) error
	Count(ctx context.Context) (int64, error)
}

// SignalBus provides pub/sub for live events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
