package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	_ "modernc.org/sqlite"
)

const (
	defaultSessionKey = "default"
	// Fixed width so ran_at sorts lexically.
	tickTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type SQLiteStore struct {
	db *sql.DB
}

func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_key TEXT PRIMARY KEY,
			blob BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE TABLE IF NOT EXISTS tick_runs (
			id TEXT PRIMARY KEY,
			ran_at TEXT NOT NULL,
			candidate TEXT NOT NULL,
			outcome TEXT NOT NULL,
			team_number INTEGER NOT NULL DEFAULT 0,
			nickname TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS tick_runs_ran_at ON tick_runs (ran_at);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("run migration query: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStore) LoadSession(ctx context.Context) ([]byte, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT blob FROM sessions WHERE session_key = ? LIMIT 1;
	`, defaultSessionKey).Scan(&blob)
	if err == nil {
		return blob, len(blob) > 0, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	return nil, false, err
}

func (s *SQLiteStore) SaveSession(ctx context.Context, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_key, blob, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(session_key)
		DO UPDATE SET
			blob = excluded.blob,
			updated_at = datetime('now');
	`, defaultSessionKey, blob)
	return err
}

func (s *SQLiteStore) RecordTick(ctx context.Context, run domain.TickRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tick_runs (id, ran_at, candidate, outcome, team_number, nickname, message, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, run.ID, run.At.UTC().Format(tickTimeLayout), run.Candidate, string(run.Outcome), run.TeamNumber, run.Nickname, run.Message, run.Error)
	return err
}

func (s *SQLiteStore) RecentTicks(ctx context.Context, limit int) ([]domain.TickRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ran_at, candidate, outcome, team_number, nickname, message, error
		FROM tick_runs
		ORDER BY ran_at DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TickRun, 0)
	for rows.Next() {
		var (
			run     domain.TickRun
			ranAt   string
			outcome string
		)
		if err := rows.Scan(&run.ID, &ranAt, &run.Candidate, &outcome, &run.TeamNumber, &run.Nickname, &run.Message, &run.Error); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(tickTimeLayout, ranAt)
		if err != nil {
			return nil, fmt.Errorf("parse ran_at %q: %w", ranAt, err)
		}
		run.At = parsed
		run.Outcome = domain.TickOutcome(outcome)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
