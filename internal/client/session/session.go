// Package session persists the shopper's active conversation key across
// restarts, the client-local analog of the storefront's saved chat pointer.
package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

type state struct {
	ConversationKey uint64 `json:"conversation_key"`
	HasKey          bool   `json:"has_key"`
}

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath places the state file under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "onlinestore", "chat_session.json")
}

// Save records the key of a freshly accepted conversation. Called once,
// right after the first successful send.
func (s *Store) Save(key uint64) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(state{ConversationKey: key, HasKey: true})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Resume reports the stored key, if any. Whether the conversation is still
// live is the caller's call to make against the history fetch.
func (s *Store) Resume() (uint64, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, false
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, false
	}
	if !st.HasKey {
		return 0, false
	}
	return st.ConversationKey, true
}

// Clear drops the stored key once the conversation is confirmed gone.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
