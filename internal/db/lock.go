package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockPollInterval = 25 * time.Millisecond

// LockedUnitOfWork serialises transactions across processes sharing one
// database file by holding an advisory file lock for the duration of each
// transaction.
type LockedUnitOfWork struct {
	inner UnitOfWork
	// mu serialises goroutines of this process; a held flock.Flock reports
	// success to every caller sharing it.
	mu   sync.Mutex
	lock *flock.Flock
}

// NewLockedUnitOfWork wraps inner with a lock on lockPath, conventionally
// "<database>.lock".
func NewLockedUnitOfWork(inner UnitOfWork, lockPath string) *LockedUnitOfWork {
	return &LockedUnitOfWork{inner: inner, lock: flock.New(lockPath)}
}

// LockPath returns the lock file path used for a database path.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

func (u *LockedUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	locked, err := u.lock.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		return fmt.Errorf("acquiring database lock %s: %w", u.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("acquiring database lock %s: not acquired", u.lock.Path())
	}
	defer func() { _ = u.lock.Unlock() }()

	return u.inner.WithinTx(ctx, fn)
}
