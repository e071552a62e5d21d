// Package prefs persists the small set of string-keyed console preferences
// that survive restarts: the active teacher identity and two panel-expanded
// flags. The store sits behind an interface so the file backend can be
// swapped for any other persistence.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Well-known preference keys.
const (
	KeyIdentity         = "identity"
	KeyManualPanelOpen  = "panel.manual_review"
	KeyHistoryPanelOpen = "panel.history"
)

// Store is a process-wide key-value store for non-sensitive preferences.
type Store interface {
	Get(key string) string
	Set(key, value string) error
}

// FileStore persists preferences as a single JSON file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileStore opens (or initializes) the preferences file at path.
// A missing file is not an error; it is created on the first Set.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("unmarshal prefs: %w", err)
	}
	return s, nil
}

// Get returns the stored value for key, or "" when unset.
func (s *FileStore) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set stores a value and writes the file through.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
