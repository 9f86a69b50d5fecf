package locking

import (
	"context"
	"time"
)

// Locker serializes engine operations on a single obligation ledger. Keys
// are scoped per (student, session) so unrelated students never contend.
type Locker interface {
	// TryLock attempts to take the lock, returning a release token.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// Release releases the lock if the token still owns it.
	Release(ctx context.Context, key, token string) error
}
