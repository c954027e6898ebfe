package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/entrhq/flagpin/pkg/types"
)

// RecordName is the key under which the override list is persisted.
const RecordName = "activeOverrides"

// Store persists the override list.
type Store interface {
	// Load returns the persisted overrides. A missing or malformed record
	// yields an empty list rather than an error.
	Load(ctx context.Context) ([]types.Override, error)

	// Save replaces the persisted overrides.
	Save(ctx context.Context, overrides []types.Override) error
}

// FileStore implements Store with a JSON document on disk:
//
//	{"activeOverrides": [ ... ]}
//
// Other top-level records in the same file are preserved on save.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store. If path is empty it defaults to
// ~/.flagpin/storage.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".flagpin", "storage.json")
	}
	return &FileStore{path: path}, nil
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the override list.
func (s *FileStore) Load(_ context.Context) ([]types.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}
	return decodeOverrides(records[RecordName]), nil
}

// Save writes the override list atomically via a temporary file.
func (s *FileStore) Save(_ context.Context, overrides []types.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readRecords()
	if err != nil {
		return err
	}
	if overrides == nil {
		overrides = []types.Override{}
	}
	encoded, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("failed to encode overrides: %w", err)
	}
	records[RecordName] = encoded

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp storage file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp storage file: %w", err)
	}
	return nil
}

// readRecords returns the top-level records of the storage file. A missing or
// unparsable file yields an empty set.
func (s *FileStore) readRecords() (map[string]json.RawMessage, error) {
	records := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	if err := json.Unmarshal(data, &records); err != nil {
		slog.Debug("registry: ignoring malformed storage file", "path", s.path, "err", err)
		return make(map[string]json.RawMessage), nil
	}
	return records, nil
}

// decodeOverrides parses the record leniently: entries that do not decode or
// lack a valid kind/key are skipped.
func decodeOverrides(raw json.RawMessage) []types.Override {
	if len(raw) == 0 {
		return []types.Override{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		slog.Debug("registry: ignoring malformed override record", "err", err)
		return []types.Override{}
	}

	out := make([]types.Override, 0, len(entries))
	for _, entry := range entries {
		var o types.Override
		if err := json.Unmarshal(entry, &o); err != nil {
			slog.Debug("registry: skipping malformed override", "err", err)
			continue
		}
		if !o.Kind.Valid() || o.Key == "" {
			continue
		}
		if o.ID == "" {
			o.ID = o.DerivedID()
		}
		out = append(out, o)
	}
	return out
}

// MemoryStore keeps the list in memory. It is used by tests and by callers
// that do not want anything written to disk.
type MemoryStore struct {
	mu        sync.Mutex
	overrides []types.Override
	saveErr   error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored list.
func (m *MemoryStore) Load(_ context.Context) ([]types.Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Override{}, m.overrides...), nil
}

// Save replaces the stored list, or returns the injected failure.
func (m *MemoryStore) Save(_ context.Context, overrides []types.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.overrides = append([]types.Override{}, overrides...)
	return nil
}

// FailSaves makes every subsequent Save return err (nil restores saving).
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}
