package convlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileState is the tail position of one session transcript.
type FileState struct {
	Offset        int64  `json:"offset"`
	LastProcessed string `json:"last_processed,omitempty"`
}

// State maps transcript stems (session ids) to their tail positions.
type State struct {
	Files map[string]FileState `json:"files"`
}

func newState() *State {
	return &State{Files: make(map[string]FileState)}
}

// LoadState reads the state file. A missing file is an empty state; a
// corrupt one is reported so the caller can log it and start over.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newState(), nil
	}
	if err != nil {
		return newState(), fmt.Errorf("read state: %w", err)
	}

	st := newState()
	if err := json.Unmarshal(data, st); err != nil {
		return newState(), fmt.Errorf("decode state %s: %w", path, err)
	}
	if st.Files == nil {
		st.Files = make(map[string]FileState)
	}
	return st, nil
}

// Save writes the state through a temp file so readers never see a partial
// document.
func (s *State) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, path)
}
