package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/loykin/storegw/internal/detector"
	"github.com/loykin/storegw/internal/logger"
	"github.com/loykin/storegw/internal/storenode"
)

// Options carry the supervisor-side settings that are not part of the
// invocation itself.
type Options struct {
	PIDFile string        `json:"pid_file" mapstructure:"pid_file"`
	WorkDir string        `json:"work_dir" mapstructure:"work_dir"`
	Env     []string      `json:"env" mapstructure:"env"`
	Log     logger.Config `json:"log" mapstructure:"log"`
}

// Process runs one store node invocation and tracks its OS process. All
// exported methods are safe for concurrent use.
type Process struct {
	mu       sync.Mutex
	inv      storenode.Invocation
	opts     Options
	cmd      *exec.Cmd
	status   Status
	stopping bool
	restarts int
	outW     io.WriteCloser
	errW     io.WriteCloser
	waitDone chan struct{}
	onExit   func(error)
}

func New(inv storenode.Invocation, opts Options) *Process {
	return &Process{inv: inv, opts: opts}
}

// SetOnExit registers a callback invoked from the monitor goroutine after the
// child exits and state has been updated. Must be set before Start.
func (p *Process) SetOnExit(fn func(error)) {
	p.mu.Lock()
	p.onExit = fn
	p.mu.Unlock()
}

// UpdateInvocation replaces the desired invocation. It does not touch the
// running process; the caller decides whether a restart is needed.
func (p *Process) UpdateInvocation(inv storenode.Invocation) {
	p.mu.Lock()
	p.inv = inv
	p.mu.Unlock()
}

func (p *Process) Invocation() storenode.Invocation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inv
}

// Start launches the child process: argv exec (never a shell), process group,
// credentials, rotated output, pidfile, and NOFILE rlimit when configured.
func (p *Process) Start() error {
	p.mu.Lock()
	if p.status.Running {
		p.mu.Unlock()
		return fmt.Errorf("store node already running with pid %d", p.status.PID)
	}
	inv := p.inv
	opts := p.opts
	p.mu.Unlock()

	argv := inv.Argv()
	// #nosec G204 -- argv comes from the validated invocation, not user shell input
	cmd := exec.Command(argv[0], argv[1:]...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cred, err := lookupCredential(inv.User, inv.Group)
	if err != nil {
		return fmt.Errorf("resolve user/group: %w", err)
	}
	configureSysProcAttr(cmd, cred)

	outW, errW, _ := opts.Log.Writers(inv.Service)
	if opts.Log.Dir != "" {
		_ = os.MkdirAll(opts.Log.Dir, 0o750)
	}
	if outW != nil {
		cmd.Stdout = outW
	} else {
		cmd.Stdout, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if errW != nil {
		cmd.Stderr = errW
	} else {
		cmd.Stderr, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}

	if err := cmd.Start(); err != nil {
		closeIgnore(outW)
		closeIgnore(errW)
		return err
	}

	var rlimitErr error
	if inv.MaxOpenFiles != nil {
		rlimitErr = applyMaxOpenFiles(cmd.Process.Pid, *inv.MaxOpenFiles)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.outW, p.errW = outW, errW
	p.waitDone = make(chan struct{})
	p.stopping = false
	p.status = Status{
		Name:      inv.Service,
		RunState:  storenode.RunStateRunning,
		Running:   true,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		Restarts:  p.restarts,
	}
	onExit := p.onExit
	p.mu.Unlock()

	p.writePIDFile()
	go p.monitor(cmd, onExit)

	if rlimitErr != nil {
		return fmt.Errorf("process started, but setting max open files failed: %w", rlimitErr)
	}
	return nil
}

func (p *Process) monitor(cmd *exec.Cmd, onExit func(error)) {
	err := cmd.Wait()

	p.mu.Lock()
	p.status.Running = false
	p.status.RunState = storenode.RunStateStopped
	p.status.StoppedAt = time.Now()
	if err != nil {
		p.status.ExitErr = err.Error()
	} else {
		p.status.ExitErr = ""
	}
	outW, errW := p.outW, p.errW
	p.outW, p.errW = nil, nil
	wd := p.waitDone
	p.waitDone = nil
	p.mu.Unlock()

	closeIgnore(outW)
	closeIgnore(errW)
	p.removePIDFile()
	if wd != nil {
		close(wd)
	}
	if onExit != nil {
		onExit(err)
	}
}

// Stop requests a graceful stop: SIGTERM to the process group, escalating to
// SIGKILL after wait. It suppresses auto-restart via the stopping flag.
func (p *Process) Stop(wait time.Duration) error {
	p.mu.Lock()
	p.stopping = true
	running := p.status.Running
	pid := p.status.PID
	wd := p.waitDone
	p.mu.Unlock()
	if !running || pid <= 0 {
		return nil
	}

	terminateGroup(pid)
	if wd != nil {
		select {
		case <-wd:
			return nil
		case <-time.After(wait):
		}
	} else {
		time.Sleep(wait)
	}

	killGroup(pid)
	if wd != nil {
		select {
		case <-wd:
		case <-time.After(2 * time.Second):
			return fmt.Errorf("store node pid %d did not exit after SIGKILL", pid)
		}
	}
	return nil
}

// StopRequested reports whether Stop has been called since the last Start.
func (p *Process) StopRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopping
}

// IncRestarts bumps the restart counter, reflected in subsequent snapshots.
func (p *Process) IncRestarts() {
	p.mu.Lock()
	p.restarts++
	p.status.Restarts = p.restarts
	p.mu.Unlock()
}

func (p *Process) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Alive checks actual liveness. The in-memory state wins when we own the
// process; otherwise the pidfile detector covers recovery after a daemon
// restart.
func (p *Process) Alive() (bool, error) {
	p.mu.Lock()
	running := p.status.Running
	pid := p.status.PID
	pidFile := p.opts.PIDFile
	p.mu.Unlock()
	if running && pid > 0 {
		d := detector.PIDDetector{PID: pid}
		return d.Alive()
	}
	if pidFile != "" {
		d := detector.PIDFileDetector{PIDFile: pidFile}
		return d.Alive()
	}
	return false, nil
}

func closeIgnore(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
