//go:build windows

package kv

import (
	"fmt"
	"os"
)

// acquireFileLock only opens the lock file on Windows; the in-process mutex
// of FileStore is the sole guard there.
func acquireFileLock(path string) (*os.File, error) {
	lockFile, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return lockFile, nil
}

func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}
	return lockFile.Close()
}
