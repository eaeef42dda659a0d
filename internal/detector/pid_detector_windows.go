//go:build windows

package detector

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// PIDDetector detects by a fixed PID.
type PIDDetector struct{ PID int }

func (d PIDDetector) Alive() (bool, error) { return pidAlive(d.PID), nil }
func (d PIDDetector) Describe() string     { return fmt.Sprintf("pid:%d", d.PID) }

// PIDFileDetector detects via a PID file.
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
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
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
			return false, nil
		}
	}
	return pidAlive(pid), nil
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.PIDFile }

// ProcStartUnix returns the process start time as Unix seconds, or 0 when
// unavailable.
func ProcStartUnix(pid int) int64 {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return 0
	}
	ms, err := p.CreateTime()
	if err != nil || ms <= 0 {
		return 0
	}
	return ms / 1000
}
