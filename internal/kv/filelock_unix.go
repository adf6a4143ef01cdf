//go:build !windows

package kv

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// acquireFileLock blocks until an exclusive lock on path is held.
func acquireFileLock(path string) (*os.File, error) {
	lockFile, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	return lockFile, nil
}

// releaseFileLock unlocks and closes the lock file. The file itself stays
// on disk so concurrent waiters keep locking the same inode.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}
	unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
	return lockFile.Close()
}
