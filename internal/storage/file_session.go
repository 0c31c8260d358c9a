package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrMalformedSession = errors.New("malformed session file")

type FileSessionStore struct {
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Path() string {
	return s.path
}

// sessionFile wraps the opaque blob; encoding/json stores []byte as base64.
type sessionFile struct {
	Session   []byte    `json:"session"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *FileSessionStore) LoadSession(_ context.Context) ([]byte, bool, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, false, nil
	}
	var file sessionFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrMalformedSession, s.path, err)
	}
	if len(file.Session) == 0 {
		return nil, false, nil
	}
	return file.Session, true, nil
}

// SaveSession replaces the file atomically so a crash mid-write leaves the
// previous session intact.
func (s *FileSessionStore) SaveSession(_ context.Context, blob []byte) error {
	content, err := json.Marshal(sessionFile{Session: blob, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
