package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another notesmith daemon instance is already running")

// InstanceLock is the single-daemon guard file.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// NewInstanceLock prepares a lock at path without acquiring it.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string { return l.path }

// Acquire takes the lock without blocking.
func (l *InstanceLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *InstanceLock) Release() error {
	if !l.lock.Locked() {
		return nil
	}
	return l.lock.Unlock()
}

// IsHeld reports whether some process currently holds the lock at path.
func IsHeld(path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
