package manager

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/loykin/storegw/internal/history"
	"github.com/loykin/storegw/internal/metrics"
	"github.com/loykin/storegw/internal/process"
	"github.com/loykin/storegw/internal/store"
	"github.com/loykin/storegw/internal/storenode"
)

// Options configure how the manager supervises the node. They live beside,
// not inside, the configuration record: the record describes the node, these
// describe the supervisor.
type Options struct {
	Process         process.Options `json:"process" mapstructure:"process"`
	AutoRestart     bool            `json:"auto_restart" mapstructure:"auto_restart"`
	RestartInterval time.Duration   `json:"restart_interval" mapstructure:"restart_interval"`
	StopWait        time.Duration   `json:"stop_wait" mapstructure:"stop_wait"`
	Logger          *slog.Logger    `json:"-" mapstructure:"-"`
}

// Manager converges the actual OS process of one store node to a desired
// invocation. Convergence is idempotent: applying the same invocation twice
// is a no-op when the process already matches.
type Manager struct {
	mu      sync.RWMutex
	opts    Options
	proc    *process.Process
	desired *storenode.Invocation
	st      store.Store
	log     *slog.Logger

	// sinks have their own guard so emit works with or without m.mu held
	sinkMu sync.Mutex
	sinks  []history.Sink
}

func New(opts Options) *Manager {
	if opts.StopWait <= 0 {
		opts.StopWait = 5 * time.Second
	}
	if opts.RestartInterval <= 0 {
		opts.RestartInterval = time.Second
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Manager{opts: opts, log: l}
}

// SetStore configures persistence for the node's last known state and
// ensures its schema. Passing nil disables persistence.
func (m *Manager) SetStore(s store.Store) error {
	m.mu.Lock()
	m.st = s
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.EnsureSchema(context.Background())
}

// SetHistorySinks configures external event sinks. Passing none clears them.
func (m *Manager) SetHistorySinks(sinks ...history.Sink) {
	m.sinkMu.Lock()
	m.sinks = append([]history.Sink(nil), sinks...)
	m.sinkMu.Unlock()
}

// Plan builds the invocation without touching the process. It exists so
// callers can inspect what Apply would do.
func (m *Manager) Plan(cfg storenode.Config) (storenode.Invocation, error) {
	return cfg.BuildInvocation()
}

// Apply builds the invocation from cfg and converges the OS process to it.
func (m *Manager) Apply(ctx context.Context, cfg storenode.Config) (storenode.Invocation, error) {
	inv, err := cfg.BuildInvocation()
	if err != nil {
		metrics.IncApply(storenode.ServiceName, "invalid")
		return storenode.Invocation{}, err
	}
	if err := m.Converge(ctx, inv); err != nil {
		metrics.IncApply(inv.Service, "error")
		return inv, err
	}
	metrics.IncApply(inv.Service, "ok")
	return inv, nil
}

// Converge makes the actual process state match inv. For run-state stopped
// the argument set is ignored; for running, a live process with a different
// command line is restarted.
func (m *Manager) Converge(ctx context.Context, inv storenode.Invocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.desired = &inv
	m.emit(ctx, history.Event{
		Type:       history.EventApply,
		OccurredAt: time.Now().UTC(),
		Node:       inv.Service,
		RunState:   inv.RunState,
		Argv:       argvString(inv),
	})

	if inv.RunState == storenode.RunStateStopped {
		return m.stopLocked(ctx)
	}
	return m.startLocked(ctx, inv)
}

// stopLocked stops the process when it runs. Caller holds m.mu.
func (m *Manager) stopLocked(ctx context.Context) error {
	if m.proc == nil {
		m.persistState(ctx, process.Status{Name: storenode.ServiceName, RunState: storenode.RunStateStopped}, "")
		metrics.SetRunState(storenode.ServiceName, "stopped")
		return nil
	}
	alive, _ := m.proc.Alive()
	if alive {
		m.log.Info("stopping store node", "wait", m.opts.StopWait.String())
		if err := m.proc.Stop(m.opts.StopWait); err != nil {
			return fmt.Errorf("stop store node: %w", err)
		}
		metrics.IncStop(storenode.ServiceName)
	}
	st := m.proc.Snapshot()
	st.RunState = storenode.RunStateStopped
	m.persistState(ctx, st, "")
	metrics.SetRunState(storenode.ServiceName, "stopped")
	return nil
}

// startLocked starts or restarts the process to match inv. Caller holds m.mu.
func (m *Manager) startLocked(ctx context.Context, inv storenode.Invocation) error {
	if m.proc != nil {
		alive, _ := m.proc.Alive()
		if alive {
			if slices.Equal(m.proc.Invocation().Argv(), inv.Argv()) {
				return nil // already converged
			}
			m.log.Info("invocation changed, restarting store node")
			if err := m.proc.Stop(m.opts.StopWait); err != nil {
				return fmt.Errorf("stop for restart: %w", err)
			}
			metrics.IncStop(inv.Service)
		}
	}

	p := process.New(inv, m.opts.Process)
	p.SetOnExit(m.onExit(p))
	if err := p.Start(); err != nil {
		return fmt.Errorf("start store node: %w", err)
	}
	m.proc = p
	st := p.Snapshot()
	m.log.Info("store node started", "pid", st.PID)
	metrics.IncStart(inv.Service)
	metrics.SetRunState(inv.Service, "running")
	m.persistState(ctx, st, argvString(inv))
	m.emit(ctx, history.Event{
		Type:       history.EventStart,
		OccurredAt: time.Now().UTC(),
		Node:       inv.Service,
		RunState:   storenode.RunStateRunning,
		PID:        st.PID,
		Argv:       argvString(inv),
	})
	return nil
}

// onExit handles an unexpected or requested exit of the child. Auto-restart
// applies only when enabled, not stop-requested, and the desired run state is
// still running.
func (m *Manager) onExit(p *process.Process) func(error) {
	return func(exitErr error) {
		st := p.Snapshot()
		ctx := context.Background()

		m.mu.Lock()
		desiredRunning := m.desired != nil && m.desired.RunState == storenode.RunStateRunning
		current := m.proc == p
		if current {
			m.persistState(ctx, st, argvString(p.Invocation()))
		}
		m.mu.Unlock()

		// A stale callback (the node was already replaced by a restart)
		// must not overwrite the live process's state.
		if current {
			metrics.SetRunState(storenode.ServiceName, "stopped")
			m.emit(ctx, history.Event{
				Type:       history.EventStop,
				OccurredAt: time.Now().UTC(),
				Node:       storenode.ServiceName,
				RunState:   storenode.RunStateStopped,
				PID:        st.PID,
				ExitErr:    st.ExitErr,
			})
		}

		if !m.opts.AutoRestart || p.StopRequested() || !desiredRunning || !current {
			return
		}
		if exitErr != nil {
			m.log.Warn("store node exited, restarting", "error", exitErr, "after", m.opts.RestartInterval.String())
		} else {
			m.log.Warn("store node exited cleanly, restarting", "after", m.opts.RestartInterval.String())
		}
		time.Sleep(m.opts.RestartInterval)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.proc != p || p.StopRequested() {
			return
		}
		if m.desired == nil || m.desired.RunState != storenode.RunStateRunning {
			return
		}
		p.IncRestarts()
		if err := p.Start(); err != nil {
			m.log.Error("auto-restart failed", "error", err)
			return
		}
		st = p.Snapshot()
		m.log.Info("store node restarted", "pid", st.PID, "restarts", st.Restarts)
		metrics.IncRestart(storenode.ServiceName)
		metrics.SetRunState(storenode.ServiceName, "running")
		m.persistState(context.Background(), st, argvString(p.Invocation()))
		m.emit(context.Background(), history.Event{
			Type:       history.EventRestart,
			OccurredAt: time.Now().UTC(),
			Node:       storenode.ServiceName,
			RunState:   storenode.RunStateRunning,
			PID:        st.PID,
		})
	}
}

// Status reports the observed node state. A zero Status with run state
// stopped is returned before the first converge.
func (m *Manager) Status() process.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.proc == nil {
		return process.Status{Name: storenode.ServiceName, RunState: storenode.RunStateStopped}
	}
	return m.proc.Snapshot()
}

// Stop stops the node regardless of the desired state and marks the desired
// run state stopped so auto-restart stands down.
func (m *Manager) Stop(wait time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.desired != nil {
		d := *m.desired
		d.RunState = storenode.RunStateStopped
		m.desired = &d
	}
	if m.proc == nil {
		return nil
	}
	if wait <= 0 {
		wait = m.opts.StopWait
	}
	if err := m.proc.Stop(wait); err != nil {
		return err
	}
	metrics.IncStop(storenode.ServiceName)
	metrics.SetRunState(storenode.ServiceName, "stopped")
	return nil
}

// Shutdown stops the node and closes the store.
func (m *Manager) Shutdown(wait time.Duration) {
	_ = m.Stop(wait)
	m.mu.Lock()
	st := m.st
	m.st = nil
	m.mu.Unlock()
	if st != nil {
		_ = st.Close()
	}
}

// LastRecord returns the persisted state, for recovery inspection after a
// supervisor restart.
func (m *Manager) LastRecord(ctx context.Context) (store.Record, error) {
	m.mu.RLock()
	st := m.st
	m.mu.RUnlock()
	if st == nil {
		return store.Record{}, fmt.Errorf("no store configured")
	}
	return st.Load(ctx, storenode.ServiceName)
}

// persistState writes the record best-effort; persistence failures are logged
// and never fail convergence. Caller holds m.mu.
func (m *Manager) persistState(ctx context.Context, st process.Status, argv string) {
	if m.st == nil {
		return
	}
	rec := store.Record{
		Name:      storenode.ServiceName,
		RunState:  st.RunState,
		PID:       st.PID,
		Argv:      argv,
		StartedAt: st.StartedAt,
		StoppedAt: st.StoppedAt,
		Running:   st.Running,
		ExitErr:   st.ExitErr,
	}
	if err := m.st.Save(ctx, rec); err != nil {
		m.log.Warn("persist node state failed", "error", err)
	}
}

// emit fans the event out to all sinks, best-effort.
func (m *Manager) emit(ctx context.Context, e history.Event) {
	m.sinkMu.Lock()
	sinks := append([]history.Sink(nil), m.sinks...)
	m.sinkMu.Unlock()
	for _, s := range sinks {
		sctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := s.Send(sctx, e); err != nil {
			m.log.Warn("history sink send failed", "error", err)
		}
		cancel()
	}
}

func argvString(inv storenode.Invocation) string {
	return strings.Join(inv.Argv(), " ")
}
