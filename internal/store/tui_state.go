package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const tuiStateFileName = "tui_state.json"

// TUIState is the small bit of UI state restored on relaunch. It lives next
// to the database so it is scoped to one store. Callers must tolerate missing
// or invalid data.
type TUIState struct {
	Version int `json:"version"`

	// Mode is "active" or "archive".
	Mode string `json:"mode,omitempty"`

	// SelectedID is the thread under the cursor when the TUI last exited.
	SelectedID string `json:"selectedId,omitempty"`
}

func (s *Store) tuiStatePath() string {
	return filepath.Join(s.Dir, tuiStateFileName)
}

func (s *Store) LoadTUIState() (*TUIState, error) {
	b, err := os.ReadFile(s.tuiStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &TUIState{Version: 1}, nil
		}
		return nil, err
	}
	var st TUIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Corrupt state is treated as missing.
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s *Store) SaveTUIState(st *TUIState) error {
	if st == nil {
		return nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := s.tuiStatePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
