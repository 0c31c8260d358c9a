package storage

import (
	"context"
	"fmt"
)

type SessionImportStats struct {
	Imported bool `json:"imported"`
	Bytes    int  `json:"bytes"`
}

// ImportSessionFile copies a session file written by the file backend into
// the sessions table. A missing or empty file imports nothing.
func (s *SQLiteStore) ImportSessionFile(ctx context.Context, path string) (SessionImportStats, error) {
	stats := SessionImportStats{}
	blob, ok, err := NewFileSessionStore(path).LoadSession(ctx)
	if err != nil {
		return stats, err
	}
	if !ok {
		return stats, nil
	}
	if err := s.SaveSession(ctx, blob); err != nil {
		return stats, fmt.Errorf("save imported session: %w", err)
	}
	stats.Imported = true
	stats.Bytes = len(blob)
	return stats, nil
}
