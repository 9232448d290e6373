// Package tokenstore persists the bearer token across process restarts.
package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is the durable token slot. Only the session store writes to it.
type Store interface {
	Load() (string, bool, error)
	Save(token string) error
	Delete() error
}

// File keeps the token in a single 0600 file.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File { return &File{path: path} }

// DefaultPath returns $XDG_CONFIG_HOME/helpdesk/token (or the OS equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "helpdesk", "token"), nil
}

func (f *File) Path() string { return f.path }

func (f *File) Load() (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read token: %w", err)
	}
	tok := strings.TrimSpace(string(b))
	return tok, tok != "", nil
}

func (f *File) Save(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	return nil
}

func (f *File) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Memory is an in-process Store that counts writes, used by tests and by
// embedders that do not want a file.
type Memory struct {
	mu      sync.Mutex
	token   string
	saves   int
	deletes int
}

func NewMemory(token string) *Memory { return &Memory{token: token} }

func (m *Memory) Load() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != "", nil
}

func (m *Memory) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.saves++
	return nil
}

func (m *Memory) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.deletes++
	return nil
}

// Counts returns the number of Save and Delete calls so far.
func (m *Memory) Counts() (saves, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.deletes
}
