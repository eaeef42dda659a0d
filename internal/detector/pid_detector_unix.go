//go:build !windows

package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// pidAlive returns true if a process with the given pid exists (or EPERM).
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// PIDDetector detects by a fixed PID.
type PIDDetector struct{ PID int }

func (d PIDDetector) Alive() (bool, error) { return pidAlive(d.PID), nil }
func (d PIDDetector) Describe() string     { return fmt.Sprintf("pid:%d", d.PID) }

// PIDFileDetector detects via a PID file. The file's first line is the PID;
// an optional JSON meta line carries the process start time, which guards
// against PID reuse after a crash.
type PIDFileDetector struct {
	PIDFile string
}

type pidMeta struct {
	StartUnix int64 `json:"start_unix"`
}

func (d PIDFileDetector) Alive() (bool, error) {
	data, err := os.ReadFile(d.PIDFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	pidStr := strings.TrimSpace(lines[0])
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return false, fmt.Errorf("invalid pid in %s: %w", d.PIDFile, err)
	}

	var metaStart int64
	for _, line := range lines[1:] {
		var m pidMeta
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &m); err == nil && m.StartUnix > 0 {
			metaStart = m.StartUnix
			break
		}
	}
	if metaStart > 0 {
		if cur := ProcStartUnix(pid); cur > 0 && cur != metaStart {
			return false, nil // PID reused; not our process
		}
	}
	return pidAlive(pid), nil
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.PIDFile }
