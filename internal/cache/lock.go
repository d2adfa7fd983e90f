package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// guardRetry is how often a contended guard lock is retried.
const guardRetry = 5 * time.Millisecond

// FileLock provides exclusive file-based locking using flock.
//
// It only guards the short read-modify-write of the cache record. The
// long-running refresh is coordinated by the advisory flag inside the record.
type FileLock struct {
	path string
	fl   *flock.Flock
}

// NewFileLock creates a new file lock for the given path.
// The lock file will be created if it doesn't exist.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path, fl: flock.New(path)}
}

// Lock acquires an exclusive lock on the file, waiting at most timeout.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := l.fl.TryLockContext(ctx, guardRetry)
	if err != nil {
		return fmt.Errorf("lock %s: %w", filepath.Base(l.path), err)
	}
	if !ok {
		return fmt.Errorf("lock %s: %w", filepath.Base(l.path), context.DeadlineExceeded)
	}
	return nil
}

// Unlock releases the lock and closes the file.
// Unlocking a lock that is not held is a no-op.
func (l *FileLock) Unlock() error {
	if !l.fl.Locked() {
		return nil
	}
	return l.fl.Unlock()
}
