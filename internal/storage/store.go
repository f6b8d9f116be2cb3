// Package storage persists client state the way a browser keeps local and
// session storage: small JSON documents addressed by string keys.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Well-known storage keys.
const (
	KeyAuth            = "tripdeck.auth"
	KeyRecommendations = "tripdeck.recommendations.v1"
	KeySession         = "tripdeck.session"
	KeyItinerary       = "tripdeck.itinerary"
	KeyRedirect        = "tripdeck.redirect"

	// packingPrefix is joined with a destination key for packing drafts.
	packingPrefix = "tripdeck.packing."
)

// PackingKey returns the session-storage key for a destination's packing draft.
func PackingKey(destinationKey string) string {
	return packingPrefix + destinationKey
}

// IsPackingKey reports whether key holds a packing draft.
func IsPackingKey(key string) bool {
	return strings.HasPrefix(key, packingPrefix)
}

// Store is a key/value document store.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, data []byte) error
	Delete(key string) error
}

// ErrInvalidKey indicates a key is empty or contains path traversal components.
var ErrInvalidKey = errors.New("storage: invalid key")

// Compile-time checks.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// FileStore persists each key as a JSON file under a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a FileStore that saves documents under baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Get reads the document stored under key.
// Returns (data, true, nil) if found, (nil, false, nil) if not found.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: reading %s: %w", p, err)
	}
	return data, true, nil
}

// Set writes data under key, replacing any existing document.
func (s *FileStore) Set(key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.baseDir, 0o700); err != nil {
		return fmt.Errorf("storage: creating directory: %w", err)
	}

	// Write to a sibling temp file so a crash never leaves a torn document.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("storage: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("storage: renaming %s: %w", tmp, err)
	}
	return nil
}

// Delete removes the document for key. Missing keys are not an error.
func (s *FileStore) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: removing %s: %w", p, err)
	}
	return nil
}

// path returns the filesystem path for a key.
// It rejects keys that are empty, dot-segments, or contain path separators.
func (s *FileStore) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, key+".json"), nil
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// MemoryStore keeps documents for the lifetime of the process,
// mirroring browser session storage.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get returns a copy of the document stored under key.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), d...), true, nil
}

// Set stores a copy of data under key.
func (s *MemoryStore) Set(key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys returns all keys currently stored.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// LoadJSON decodes the document under key into v.
// Returns false without error when the key is absent.
func LoadJSON(s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("storage: parsing %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshaling %s: %w", key, err)
	}
	return s.Set(key, data)
}
