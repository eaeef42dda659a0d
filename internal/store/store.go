package store

import (
	"context"
	"time"

	"github.com/loykin/storegw/internal/storenode"
)

// Record is the last known state persisted for the supervised node. It is
// intentionally minimal: enough for PID recovery after a daemon restart and
// for answering "what was applied last".
type Record struct {
	Name      string             `json:"name"`
	RunState  storenode.RunState `json:"run_state"`
	PID       int                `json:"pid"`
	Argv      string             `json:"argv"`
	StartedAt time.Time          `json:"started_at"`
	StoppedAt time.Time          `json:"stopped_at"`
	Running   bool               `json:"running"`
	ExitErr   string             `json:"exit_err,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store persists the node's last known state, keyed by name.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, name string) (Record, error)
	Close() error
}

// Config selects and configures a backend for the factory.
type Config struct {
	Type string `json:"type" mapstructure:"type"` // "sqlite" or "postgres"
	Path string `json:"path" mapstructure:"path"` // sqlite database file
	DSN  string `json:"dsn" mapstructure:"dsn"`   // postgres connection string
}
