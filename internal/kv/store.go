// Package kv provides the durable string key/value store the history and
// preferences are persisted in.
package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kv store closed")

// Store is a durable key/value store keyed by string.
// A missing key is reported with ok == false and no error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the store for the given backend. An empty path resolves to
// the default location inside the XDG data directory.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		if path == "" {
			dir, err := DataDir()
			if err != nil {
				return nil, fmt.Errorf("resolving data directory: %w", err)
			}
			path = filepath.Join(dir, "store.json")
		}
		return NewFileStore(path)
	case BackendSQLite:
		if path == "" {
			dir, err := DataDir()
			if err != nil {
				return nil, fmt.Errorf("resolving data directory: %w", err)
			}
			path = filepath.Join(dir, "tunefinder.sqlite3")
		}
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (valid: file, sqlite, memory)", backend)
	}
}

// DataDir returns $XDG_DATA_HOME/tunefinder or ~/.local/share/tunefinder.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "tunefinder"), nil
}
