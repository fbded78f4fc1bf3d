package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Session is the persisted client state: the opaque auth token, the user's
// display identity and the last-known wallet address. It survives restarts
// the way browser storage survives reloads.
type Session struct {
	Token         string `json:"token"`
	Identity      string `json:"identity"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// Store persists the session as a single JSON file, replaced atomically so
// logout clears everything or nothing.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session, or returns nil when none exists.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session state: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if sess.Token == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s *Store) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session state: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Missing state is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
