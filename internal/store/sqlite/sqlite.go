package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loykin/storegw/internal/store"
	"github.com/loykin/storegw/internal/storenode"
)

// DB implements store.Store on SQLite (modernc.org/sqlite, CGO-free).
// Path is a filesystem path; use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

func init() {
	store.Register("sqlite", func(cfg store.Config) (store.Store, error) {
		return New(cfg.Path)
	})
}

func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS node_state(
			name TEXT PRIMARY KEY,
			run_state TEXT NOT NULL,
			pid INTEGER NOT NULL,
			argv TEXT NOT NULL,
			started_at TIMESTAMP NULL,
			stopped_at TIMESTAMP NULL,
			running BOOLEAN NOT NULL,
			exit_err TEXT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_node_state_running ON node_state(running);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Save(ctx context.Context, rec store.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	var exitErr sql.NullString
	if rec.ExitErr != "" {
		exitErr = sql.NullString{String: rec.ExitErr, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_state(name, run_state, pid, argv, started_at, stopped_at, running, exit_err, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			run_state=excluded.run_state,
			pid=excluded.pid,
			argv=excluded.argv,
			started_at=excluded.started_at,
			stopped_at=excluded.stopped_at,
			running=excluded.running,
			exit_err=excluded.exit_err,
			updated_at=excluded.updated_at;`,
		rec.Name, string(rec.RunState), rec.PID, rec.Argv,
		nullTime(rec.StartedAt), nullTime(rec.StoppedAt), rec.Running, exitErr, rec.UpdatedAt)
	return err
}

func (s *DB) Load(ctx context.Context, name string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, run_state, pid, argv, started_at, stopped_at, running, exit_err, updated_at
		FROM node_state WHERE name=?;`, name)
	var rec store.Record
	var runState string
	var startedAt, stoppedAt sql.NullTime
	var exitErr sql.NullString
	if err := row.Scan(&rec.Name, &runState, &rec.PID, &rec.Argv, &startedAt, &stoppedAt, &rec.Running, &exitErr, &rec.UpdatedAt); err != nil {
		return store.Record{}, err
	}
	rec.RunState = storenode.RunState(runState)
	if startedAt.Valid {
		rec.StartedAt = startedAt.Time
	}
	if stoppedAt.Valid {
		rec.StoppedAt = stoppedAt.Time
	}
	if exitErr.Valid {
		rec.ExitErr = exitErr.String
	}
	return rec, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
