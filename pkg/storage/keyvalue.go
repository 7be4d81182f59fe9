// Package storage persists user face profiles. Embedding vectors are
// encrypted with NaCl secretbox before they reach the key-value layer,
// so the secure-storage capability only ever sees opaque blobs.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a key or user does not exist.
var ErrNotFound = errors.New("not found")

// ErrStorageAccess is returned when the backing store cannot be accessed.
var ErrStorageAccess = errors.New("failed to access storage")

// SecureStore is the platform secure-storage capability: a namespaced
// key-value store over opaque blobs. Put has insert-or-update semantics.
type SecureStore interface {
	Put(key string, blob []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	ListKeys(prefix string) ([]string, error)
}

// FileStore implements SecureStore on a private directory, one file
// per key with 0600 permissions.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	return &FileStore{dir: dir}, nil
}

// keyPath maps a key to a file path. Keys are escaped so namespace
// separators cannot climb out of the store directory.
func (s *FileStore) keyPath(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".bin")
}

// Put writes or replaces the blob stored under key.
func (s *FileStore) Put(key string, blob []byte) error {
	if err := os.WriteFile(s.keyPath(key), blob, 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	return nil
}

// Get returns the blob stored under key.
func (s *FileStore) Get(key string) ([]byte, error) {
	blob, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	return blob, nil
}

// Delete removes the blob stored under key.
func (s *FileStore) Delete(key string) error {
	if err := os.Remove(s.keyPath(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	return nil
}

// ListKeys returns all keys with the given prefix.
func (s *FileStore) ListKeys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".bin") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".bin"))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
