package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loykin/storegw/internal/detector"
)

// writePIDFile records the child's PID plus a meta line with the process
// start time, so a later daemon instance can tell a reused PID apart.
func (p *Process) writePIDFile() {
	p.mu.Lock()
	path := p.opts.PIDFile
	pid := p.status.PID
	p.mu.Unlock()
	if path == "" || pid <= 0 {
		return
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o750)
	content := strconv.Itoa(pid) + "\n"
	if start := detector.ProcStartUnix(pid); start > 0 {
		content += fmt.Sprintf("{\"start_unix\":%d}\n", start)
	}
	_ = os.WriteFile(path, []byte(content), 0o600)
}

func (p *Process) removePIDFile() {
	p.mu.Lock()
	path := p.opts.PIDFile
	p.mu.Unlock()
	if path != "" {
		_ = os.Remove(path)
	}
}

// ReadPIDFile returns the PID stored at path.
func ReadPIDFile(path string) (int, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	line, _, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	return pid, nil
}
