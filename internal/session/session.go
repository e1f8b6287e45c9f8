// Package session stores the connected user between CLI invocations.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"billed/internal/core"
	"billed/internal/store"
)

var (
	_ store.SessionProvider = (*FileProvider)(nil)
	_ store.SessionProvider = Static{}
)

// DefaultFileName is used when no session path is configured.
const DefaultFileName = "session.toml"

// FileProvider reads the session from a TOML file on every call, so a
// login or logout made by another process is picked up immediately.
type FileProvider struct {
	mu   sync.Mutex
	path string
}

// NewFileProvider returns a provider backed by path. If path is empty it
// defaults to ~/.billed/session.toml.
func NewFileProvider(path string) (*FileProvider, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".billed", DefaultFileName)
	}
	return &FileProvider{path: path}, nil
}

// Path returns the session file path.
func (p *FileProvider) Path() string {
	return p.path
}

// Session returns the stored user, or core.ErrNoSession when nobody is
// logged in.
func (p *FileProvider) Session() (core.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Session{}, core.ErrNoSession
		}
		return core.Session{}, fmt.Errorf("read session file: %w", err)
	}

	var s core.Session
	if err := toml.Unmarshal(data, &s); err != nil {
		return core.Session{}, fmt.Errorf("decode session file %s: %w", p.path, err)
	}
	if err := s.Validate(); err != nil {
		return core.Session{}, err
	}
	return s, nil
}

// Save writes s to the session file with owner-only permissions.
func (p *FileProvider) Save(s core.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return os.WriteFile(p.path, data, 0600)
}

// Clear removes the session file. Clearing a missing session is not an error.
func (p *FileProvider) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Static always returns the same session.
type Static core.Session

func (s Static) Session() (core.Session, error) {
	sess := core.Session(s)
	if err := sess.Validate(); err != nil {
		return core.Session{}, err
	}
	return sess, nil
}
