package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const jsonStoreVersion = 1

// cooldownFile is the on-disk envelope of the JSON backend.
type cooldownFile struct {
	Version   int              `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
	Cooldowns map[string]int64 `json:"cooldowns"`
}

// JSONStore keeps cooldowns in a single JSON file.
type JSONStore struct {
	path  string
	mutex sync.Mutex
}

// NewJSONStore creates a store writing to path. The file is created on first Save.
func NewJSONStore(path string) (*JSONStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cooldown directory: %w", err)
	}
	return &JSONStore{path: path}, nil
}

// Load reads the file. A missing file is an empty state, not an error.
func (s *JSONStore) Load(ctx context.Context) (map[string]int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]int64), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cooldown file: %w", err)
	}

	var file cooldownFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cooldown file %s: %w", s.path, err)
	}
	if file.Version > jsonStoreVersion {
		return nil, fmt.Errorf("cooldown file %s has unsupported version %d", s.path, file.Version)
	}
	if file.Cooldowns == nil {
		file.Cooldowns = make(map[string]int64)
	}
	return file.Cooldowns, nil
}

// Save writes a temp file next to the target, syncs it and renames it over
// the target so readers never observe a partial file.
func (s *JSONStore) Save(ctx context.Context, records map[string]int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := json.MarshalIndent(cooldownFile{
		Version:   jsonStoreVersion,
		UpdatedAt: time.Now().UTC(),
		Cooldowns: records,
	}, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal cooldowns: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace cooldown file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (s *JSONStore) Close() error { return nil }
