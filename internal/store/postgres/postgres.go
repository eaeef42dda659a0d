package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/storegw/internal/store"
	"github.com/loykin/storegw/internal/storenode"
)

// DB implements store.Store on PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func init() {
	store.Register("postgres", func(cfg store.Config) (store.Store, error) {
		return New(cfg.DSN)
	})
	store.Register("postgresql", func(cfg store.Config) (store.Store, error) {
		return New(cfg.DSN)
	})
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS node_state(
			name TEXT PRIMARY KEY,
			run_state TEXT NOT NULL,
			pid INTEGER NOT NULL,
			argv TEXT NOT NULL,
			started_at TIMESTAMPTZ NULL,
			stopped_at TIMESTAMPTZ NULL,
			running BOOLEAN NOT NULL,
			exit_err TEXT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_node_state_running ON node_state(running);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Save(ctx context.Context, rec store.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	var exitErr sql.NullString
	if rec.ExitErr != "" {
		exitErr = sql.NullString{String: rec.ExitErr, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO node_state(name, run_state, pid, argv, started_at, stopped_at, running, exit_err, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT(name) DO UPDATE SET
			run_state=EXCLUDED.run_state,
			pid=EXCLUDED.pid,
			argv=EXCLUDED.argv,
			started_at=EXCLUDED.started_at,
			stopped_at=EXCLUDED.stopped_at,
			running=EXCLUDED.running,
			exit_err=EXCLUDED.exit_err,
			updated_at=EXCLUDED.updated_at;`,
		rec.Name, string(rec.RunState), rec.PID, rec.Argv,
		nullTime(rec.StartedAt), nullTime(rec.StoppedAt), rec.Running, exitErr, rec.UpdatedAt)
	return err
}

func (p *DB) Load(ctx context.Context, name string) (store.Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT name, run_state, pid, argv, started_at, stopped_at, running, exit_err, updated_at
		FROM node_state WHERE name=$1;`, name)
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
