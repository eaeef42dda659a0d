//go:build !linux

package process

import (
	"fmt"
	"runtime"
)

// applyMaxOpenFiles needs prlimit(2), which only Linux exposes; elsewhere the
// child keeps the platform default and the caller gets a warning error.
func applyMaxOpenFiles(pid, n int) error {
	return fmt.Errorf("max_open_files=%d for pid %d: not supported on %s", n, pid, runtime.GOOS)
}
