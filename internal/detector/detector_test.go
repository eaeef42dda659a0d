package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func TestPIDDetector(t *testing.T) {
	requireUnix(t)
	d := PIDDetector{PID: os.Getpid()}
	alive, err := d.Alive()
	if err != nil || !alive {
		t.Fatalf("own pid should be alive, got alive=%v err=%v", alive, err)
	}
	if d.Describe() != fmt.Sprintf("pid:%d", os.Getpid()) {
		t.Fatalf("describe mismatch: %q", d.Describe())
	}
	d = PIDDetector{PID: -1}
	alive, err = d.Alive()
	if err != nil || alive {
		t.Fatalf("negative pid must be dead, got alive=%v err=%v", alive, err)
	}
}

func TestPIDFileDetector(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	pidfile := filepath.Join(dir, "store.pid")
	d := PIDFileDetector{PIDFile: pidfile}

	// missing file -> false, nil
	alive, err := d.Alive()
	if err != nil || alive {
		t.Fatalf("missing pidfile: alive=%v err=%v", alive, err)
	}

	// own pid -> alive
	if err := os.WriteFile(pidfile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}
	alive, err = d.Alive()
	if err != nil || !alive {
		t.Fatalf("own pid via pidfile: alive=%v err=%v", alive, err)
	}

	// garbage -> error
	if err := os.WriteFile(pidfile, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}
	if _, err = d.Alive(); err == nil {
		t.Fatalf("expected error for garbage pidfile")
	}
}

func TestPIDFileDetectorStartTimeMismatch(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	pidfile := filepath.Join(dir, "store.pid")

	// A meta start time far in the past cannot match the current process.
	content := fmt.Sprintf("%d\n{\"start_unix\":12345}\n", os.Getpid())
	if err := os.WriteFile(pidfile, []byte(content), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}
	d := PIDFileDetector{PIDFile: pidfile}
	alive, err := d.Alive()
	if err != nil {
		t.Fatalf("alive: %v", err)
	}
	if cur := ProcStartUnix(os.Getpid()); cur > 0 && alive {
		t.Fatalf("stale start time should report not alive")
	}
}

func TestProcStartUnixInvalid(t *testing.T) {
	if got := ProcStartUnix(0); got != 0 {
		t.Fatalf("pid 0 should yield 0, got %d", got)
	}
	if got := ProcStartUnix(-5); got != 0 {
		t.Fatalf("negative pid should yield 0, got %d", got)
	}
}
