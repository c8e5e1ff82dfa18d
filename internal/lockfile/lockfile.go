// Package lockfile coordinates store access across processes with an
// advisory lock next to the database file. The daemon and one-shot
// writers hold the exclusive lock; readers take the shared lock.
package lockfile

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrHeld is returned when the exclusive lock is already taken, usually
// because the daemon is running.
var ErrHeld = errors.New("store write lock is held by another process")

// Path returns the lock file path for a store.
func Path(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireWrite takes the exclusive writer lock. The caller holds it for
// its lifetime and releases it with Unlock.
func AcquireWrite(dbPath string) (*flock.Flock, error) {
	lock := flock.New(Path(dbPath))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire write lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", lock.Path(), ErrHeld)
	}
	return lock, nil
}

// AcquireRead takes the shared reader lock, which fences readers off
// from one-shot writers. A nil lock with a nil error means the daemon
// holds the writer lock; mode=ro reads stay consistent under WAL, so
// readers proceed without one.
func AcquireRead(dbPath string) (*flock.Flock, error) {
	lock := flock.New(Path(dbPath))
	ok, err := lock.TryRLock()
	if err != nil {
		return nil, fmt.Errorf("acquire read lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}
