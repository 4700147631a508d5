// Package lockfile provides cross-process exclusive locking so only one
// zmem process writes to a given metadata store at a time.
package lockfile

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

// Lock guards a single resource path (typically a database file) with an
// OS-level exclusive lock held at <path>.lock.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns a lock for the given resource path. The actual lock file is
// created alongside it with a ".lock" suffix.
func New(resourcePath string) *Lock {
	lockPath := resourcePath + ".lock"
	return &Lock{path: lockPath, flock: flock.New(lockPath)}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *Lock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return zerrors.New(zerrors.Database, "create lock directory", err)
	}
	if err := l.flock.Lock(); err != nil {
		return zerrors.New(zerrors.Database, "acquire lock", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking. It returns false,
// without error, if another process already holds it.
func (l *Lock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, zerrors.New(zerrors.Database, "create lock directory", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, zerrors.New(zerrors.Database, "acquire lock", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return zerrors.New(zerrors.Database, "release lock", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// IsLocked reports whether this handle currently holds the lock.
func (l *Lock) IsLocked() bool {
	return l.locked
}
