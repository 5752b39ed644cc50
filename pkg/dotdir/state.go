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
	ingestStateFile = "ingest_state.json"
)

// IngestState remembers which files `glyph ingest --watch` has already sent,
// so a restarted watcher only sends new or changed files.
type IngestState struct {
	Files map[string]FileState `json:"files"`
}

// FileState identifies one version of a file.
type FileState struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Changed reports whether info describes a different version of path than
// the one recorded.
func (s *IngestState) Changed(path string, info os.FileInfo) bool {
	prev, ok := s.Files[path]
	if !ok {
		return true
	}
	return prev.Size != info.Size() || !prev.ModTime.Equal(info.ModTime())
}

// Record stores info as the latest sent version of path.
func (s *IngestState) Record(path string, info os.FileInfo) {
	if s.Files == nil {
		s.Files = make(map[string]FileState)
	}
	s.Files[path] = FileState{Size: info.Size(), ModTime: info.ModTime()}
}

// LoadIngestState loads .glyph/ingest_state.json. A missing file yields an
// empty state.
func (m *Manager) LoadIngestState(overrideDir string) (*IngestState, error) {
	dir, err := m.Init(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, ingestStateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &IngestState{Files: map[string]FileState{}}, nil
		}
		return nil, fmt.Errorf("reading ingest state: %w", err)
	}

	state := &IngestState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing ingest state: %w", err)
	}
	if state.Files == nil {
		state.Files = map[string]FileState{}
	}
	return state, nil
}

// SaveIngestState persists state to .glyph/ingest_state.json.
func (m *Manager) SaveIngestState(state *IngestState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil ingest state")
	}

	dir, err := m.Init(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ingest state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ingestStateFile), data, 0o600); err != nil {
		return fmt.Errorf("writing ingest state: %w", err)
	}
	return nil
}

// ClearIngestState removes the state file. Returns nil if it does not exist.
func (m *Manager) ClearIngestState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, ingestStateFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing ingest state: %w", err)
	}
	return nil
}
