// ABOUTME: Key-value slots that survive process restarts for session state
// ABOUTME: File-backed storage in the XDG config directory plus an in-memory variant

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StorageKey is the well-known slot holding the serialized session
const StorageKey = "user"

// Storage is a persisted key-value slot store
type Storage interface {
	// Get returns the stored value; ok is false when the key is absent
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// DefaultConfigDir returns the default config directory following XDG conventions
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "carportal")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "carportal")
}

// FileStorage keeps one JSON file per key under a directory
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage creates file storage rooted at dir. The directory is created lazily.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Dir returns the storage directory
func (fs *FileStorage) Dir() string {
	return fs.dir
}

func (fs *FileStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(fs.dir, key+".json"), nil
}

// Get reads the slot for key
func (fs *FileStorage) Get(key string) ([]byte, bool, error) {
	p, err := fs.path(key)
	if err != nil {
		return nil, false, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes the slot for key atomically (temp file + rename)
func (fs *FileStorage) Set(key string, value []byte) error {
	p, err := fs.path(key)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(fs.dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(fs.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, p)
}

// Remove deletes the slot for key. Removing an absent key is not an error.
func (fs *FileStorage) Remove(key string) error {
	p, err := fs.path(key)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStorage is a process-local Storage, used by tests and the TUI demo mode
type MemoryStorage struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{slots: make(map[string][]byte)}
}

func (ms *MemoryStorage) Get(key string) ([]byte, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	v, ok := ms.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (ms *MemoryStorage) Set(key string, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.slots[key] = append([]byte(nil), value...)
	return nil
}

func (ms *MemoryStorage) Remove(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.slots, key)
	return nil
}
