package shared

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// State is the data carried between reconciliation passes.
type State struct {
	CollectionID string    `json:"collection_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// StateStore reads and writes [State] between passes.
type StateStore interface {
	Read() (State, error)
	Write(State) error
}

// FileStateStore persists [State] as a JSON document.
type FileStateStore struct {
	path string
	now  func() time.Time
}

// NewFileStateStore returns a store backed by the file at path.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *FileStateStore) Path() string {
	return s.path
}

// Read returns the stored state. A missing or empty file is an empty state.
func (s *FileStateStore) Read() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read state file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return State{}, nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("%w: %s: %v", ErrInvalidState, s.path, err)
	}
	return state, nil
}

// Write stamps UpdatedAt and atomically replaces the state file.
func (s *FileStateStore) Write(state State) error {
	state.UpdatedAt = s.now().UTC()

	data, err := MarshalJSON(state, true)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Reset removes the state file. Removing a missing file is not an error.
func (s *FileStateStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
