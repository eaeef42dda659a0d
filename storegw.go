// Package storegw translates a declarative store node configuration into a
// concrete process invocation and supervises the resulting process.
package storegw

import (
	"context"
	"net/http"
	"time"

	cfg "github.com/loykin/storegw/internal/config"
	"github.com/loykin/storegw/internal/history"
	"github.com/loykin/storegw/internal/logger"
	"github.com/loykin/storegw/internal/manager"
	"github.com/loykin/storegw/internal/metrics"
	"github.com/loykin/storegw/internal/process"
	iapi "github.com/loykin/storegw/internal/server"
	"github.com/loykin/storegw/internal/store"
	"github.com/loykin/storegw/internal/storenode"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = storenode.Config

type Invocation = storenode.Invocation

type Ensure = storenode.Ensure

type RunState = storenode.RunState

type Status = process.Status

type FileConfig = cfg.FileConfig

type HistorySink = history.Sink

type LogConfig = logger.Config

type StateStore = store.Store

// ErrInvalidConfiguration matches all structural validation failures.
var ErrInvalidConfiguration = storenode.ErrInvalidConfiguration

// DefaultConfig returns a Config with the conventional store node defaults.
func DefaultConfig() Config { return storenode.DefaultConfig() }

// Plan computes the invocation for cfg without any lifecycle manager, for
// callers that only want the translation.
func Plan(cfg Config) (Invocation, error) { return cfg.BuildInvocation() }

// Manager is a thin facade over internal/manager.Manager.
// It provides a stable public API for embedding.
type Manager struct{ inner *manager.Manager }

// Options selects supervision behavior for a Manager.
type Options struct {
	AutoRestart     bool
	RestartInterval time.Duration
	StopWait        time.Duration
	PIDFile         string
	WorkDir         string
	Env             []string
	Log             LogConfig
}

func New() *Manager { return NewWithOptions(Options{}) }

func NewWithOptions(o Options) *Manager {
	return &Manager{inner: manager.New(manager.Options{
		AutoRestart:     o.AutoRestart,
		RestartInterval: o.RestartInterval,
		StopWait:        o.StopWait,
		Process: process.Options{
			PIDFile: o.PIDFile,
			WorkDir: o.WorkDir,
			Env:     o.Env,
			Log:     o.Log,
		},
	})}
}

func (m *Manager) Plan(c Config) (Invocation, error) { return m.inner.Plan(c) }
func (m *Manager) Apply(ctx context.Context, c Config) (Invocation, error) {
	return m.inner.Apply(ctx, c)
}
func (m *Manager) Status() Status                  { return m.inner.Status() }
func (m *Manager) Stop(wait time.Duration) error   { return m.inner.Stop(wait) }
func (m *Manager) Shutdown(wait time.Duration)     { m.inner.Shutdown(wait) }
func (m *Manager) SetStore(s StateStore) error     { return m.inner.SetStore(s) }
func (m *Manager) SetHistorySinks(s ...HistorySink) {
	m.inner.SetHistorySinks(s...)
}

// LoadConfig parses the TOML configuration file.
func LoadConfig(path string) (FileConfig, error) { return cfg.Load(path) }

// NewHTTPServer starts an HTTP server exposing the internal API using the given manager.
func NewHTTPServer(addr, basePath string, m *Manager) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, m.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
