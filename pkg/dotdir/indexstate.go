package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	indexStateFile = "lastindex.json"
)

// IndexState records the outcome of the most recent indexing run.
// It is persisted as a JSON file in the .parlance/ directory so commands like
// `parlance status` can report on the corpus without re-reading the stores.
type IndexState struct {
	// IndexedAt is when the run completed.
	IndexedAt time.Time `json:"indexed_at"`

	// Corpus is the root directory that was indexed.
	Corpus string `json:"corpus"`

	// Languages lists the language codes that were indexed.
	Languages []string `json:"languages"`

	// Sources is the number of source files visited.
	Sources int `json:"sources"`

	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Removed int `json:"removed"`

	// TotalRecords is the record count across all language stores after the run.
	TotalRecords int `json:"total_records"`
}

// LoadIndexState loads the last indexing state from a target .parlance/lastindex.json.
// Returns nil, nil if no state exists (the corpus has never been indexed).
// If overrideDir is non-empty, it is used instead of the default ~/.parlance/ location.
func (m *Manager) LoadIndexState(overrideDir string) (*IndexState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, indexStateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index state: %w", err)
	}

	state := &IndexState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing index state: %w", err)
	}

	return state, nil
}

// SaveIndexState persists the indexing state to a target .parlance/lastindex.json.
func (m *Manager) SaveIndexState(state *IndexState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil index state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index state: %w", err)
	}

	path := filepath.Join(dir, indexStateFile)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // state file is not sensitive
		return fmt.Errorf("writing index state: %w", err)
	}

	return nil
}

// ClearIndexState removes the index state file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearIndexState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, indexStateFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing index state: %w", err)
	}

	return nil
}
