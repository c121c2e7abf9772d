// Package lock guards jwlmerge's working directory against concurrent
// merge invocations using a filesystem advisory lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another jwlmerge process is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Common timeout values for lock acquisition.
const (
	TimeoutImmediate = 0 * time.Second
	TimeoutShort     = 1 * time.Second
	TimeoutMedium    = 10 * time.Second
	TimeoutLong      = 60 * time.Second
)

// WorkingDirLock wraps a flock.Flock over a lock file inside the
// working directory, released automatically when the process exits but
// explicitly released on every exit path as a matter of hygiene.
type WorkingDirLock struct {
	flock *flock.Flock
	path  string
	held  bool
}

// New creates a lock over path (typically "<working-dir>/.jwlmerge.lock").
// The lock is not acquired until Acquire or TryAcquire is called.
func New(path string) *WorkingDirLock {
	return &WorkingDirLock{flock: flock.New(path), path: path}
}

// Acquire attempts to acquire the lock, retrying until timeout elapses.
// A timeout of 0 tries exactly once with no retry.
func (l *WorkingDirLock) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	if l.held {
		return true, nil
	}

	if timeout <= 0 {
		ok, err := l.flock.TryLock()
		if err != nil {
			return false, fmt.Errorf("lock: acquiring %q: %w", l.path, err)
		}
		l.held = ok
		return ok, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := l.flock.TryLock()
		if err != nil {
			return false, fmt.Errorf("lock: acquiring %q: %w", l.path, err)
		}
		if ok {
			l.held = true
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// TryAcquire attempts to acquire the lock immediately without retrying.
func (l *WorkingDirLock) TryAcquire() (bool, error) {
	return l.Acquire(context.Background(), TimeoutImmediate)
}

// AcquireOrFail acquires the lock with TimeoutShort, returning
// ErrLockTimeout if another jwlmerge process already holds it.
func (l *WorkingDirLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := l.Acquire(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: %q is held by another jwlmerge process", ErrLockTimeout, l.path)
	}
	return nil
}

// Release releases the lock if held.
func (l *WorkingDirLock) Release() error {
	if !l.held {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("lock: releasing %q: %w", l.path, err)
	}
	l.held = false
	return nil
}

// IsHeld reports whether this instance currently holds the lock.
func (l *WorkingDirLock) IsHeld() bool {
	return l.held
}

// Path returns the lock file path.
func (l *WorkingDirLock) Path() string {
	return l.path
}

// WithLock acquires the working-directory lock, runs fn, and releases
// the lock on every exit path including panic.
func WithLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	l := New(path)
	acquired, err := l.Acquire(ctx, timeout)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: %q is held by another jwlmerge process", ErrLockTimeout, path)
	}
	defer l.Release()
	return fn()
}
