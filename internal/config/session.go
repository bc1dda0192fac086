package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Session is the CLI context remembered between invocations.
type Session struct {
	ClientID     int64     `yaml:"clientId,omitempty"`
	ClientName   string    `yaml:"clientName,omitempty"`
	EvaluationID *int64    `yaml:"evaluationId,omitempty"`
	UpdatedAt    time.Time `yaml:"updatedAt,omitempty"`
}

// SessionStore loads and saves the session.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// Compile-time check that FileSessionStore satisfies SessionStore.
var _ SessionStore = FileSessionStore{}

// FileSessionStore keeps the session in a YAML file.
type FileSessionStore struct {
	Path string
}

// Load returns the stored session, or an empty one when the file is absent.
func (f FileSessionStore) Load(_ context.Context) (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read session: %w", err)
	}
	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: decode session: %w", err)
	}
	return &s, nil
}

// Save writes s atomically through a temp file and rename.
func (f FileSessionStore) Save(_ context.Context, s *Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("config: session dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("config: write session: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("config: write session: %w", err)
	}
	return nil
}
