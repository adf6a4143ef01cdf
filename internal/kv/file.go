package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists all keys as a single JSON object on disk.
// Writes are atomic (temp file + rename) and serialized across processes
// with an advisory lock file next to the data file.
type FileStore struct {
	path string

	mu     sync.Mutex
	closed bool
}

// NewFileStore returns a FileStore writing to path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the location of the data file.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", false, ErrClosed
	}

	data, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, value string) error {
	return f.update(func(data map[string]string) {
		data[key] = value
	})
}

func (f *FileStore) Remove(key string) error {
	return f.update(func(data map[string]string) {
		delete(data, key)
	})
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// update performs a locked read-modify-write of the whole file.
func (f *FileStore) update(mutate func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	lock, err := acquireFileLock(f.path + ".lock")
	if err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	defer releaseFileLock(lock)

	data, err := f.read()
	if err != nil {
		return err
	}
	mutate(data)

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	return atomicWriteFile(f.path, encoded, 0o644)
}

// read loads the file. A missing file is an empty store; an unparsable file
// is treated as empty too and gets replaced on the next write.
func (f *FileStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("Store file is corrupt, starting empty", "path", f.path, "error", err)
		return make(map[string]string), nil
	}
	return data, nil
}

// atomicWriteFile writes data to a temp file in the same directory and renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist store: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist store: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist store: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist store: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to persist store: %w", err)
	}
	return nil
}
