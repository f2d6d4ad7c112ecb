package domain

import (
	"context"
	"time"
)

// LockManager provides distributed locking. Both periodic jobs take a
// best-effort lock per invocation so overlapping scheduler deliveries skip
// instead of racing; correctness never depends on the lock.
type LockManager interface {
	// Acquire attempts to obtain the lock for key with the given TTL. On
	// success it returns an unlock function. Returns ErrLockHeld when
	// another holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// LiveScoreCache holds the freshest non-final snapshots per contest so the
// product surface can poll scores without touching the primary store.
// Writes are best-effort; entries expire on their own.
type LiveScoreCache interface {
	SetSnapshots(ctx context.Context, contestID string, snaps []MatchSnapshot) error
	GetSnapshots(ctx context.Context, contestID string) ([]MatchSnapshot, error)
}
