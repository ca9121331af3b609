// Package secretstore implements the opaque secret store spec.md §6
// describes for provider credentials: a key-value service addressed by a
// fixed string, external to the core's domain model. Grounded on the
// teacher's locker-style mutex-guarded map idiom
// (internal/sessions.DBLocker's renew map).
package secretstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is the interface the core depends on; FileStore is the only
// implementation, but tests may substitute an in-memory fake.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore persists secrets as a single YAML document under a user
// config directory, matching spec.md §6's "credentials live in an opaque
// secret store keyed by a fixed string."
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore opens (without yet reading) a secret store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns the conventional location for the secret store
// under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("secretstore: resolving config dir: %w", err)
	}
	return filepath.Join(dir, "agentrun", "secrets.yaml"), nil
}

func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("secretstore: reading %s: %w", f.path, err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("secretstore: parsing %s: %w", f.path, err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (f *FileStore) save(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("secretstore: creating directory: %w", err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("secretstore: encoding: %w", err)
	}
	return os.WriteFile(f.path, data, 0o600)
}

// Get returns the secret stored under key.
func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set stores value under key, creating the store file if absent.
func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load()
	if err != nil {
		return err
	}
	m[key] = value
	return f.save(m)
}

// Delete removes key from the store. Deleting an absent key is a no-op.
func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.load()
	if err != nil {
		return err
	}
	delete(m, key)
	return f.save(m)
}
