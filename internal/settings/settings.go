// Package settings persists the handful of key/value settings that must
// survive restarts, notably the Telegram session token.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// KeySession stores the provider session token saved by /login.
const KeySession = "session"

// Settings is a mutex-guarded key/value store backed by a JSON file.
type Settings struct {
	path string

	mu   sync.Mutex
	vals map[string]string
}

// Open loads the settings file at path, starting empty when it does not
// exist yet.
func Open(path string) (*Settings, error) {
	s := &Settings{path: path, vals: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s.vals); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

// Get returns the value for key, or the empty string when unset.
func (s *Settings) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vals[key]
}

// Set stores key=value and writes the file.
func (s *Settings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vals[key] = value
	data, err := json.MarshalIndent(s.vals, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
