//go:build linux

package process

import "golang.org/x/sys/unix"

// applyMaxOpenFiles raises the NOFILE rlimit of an already started child via
// prlimit(2). Both soft and hard limits are set to n.
func applyMaxOpenFiles(pid, n int) error {
	lim := &unix.Rlimit{Cur: uint64(n), Max: uint64(n)}
	return unix.Prlimit(pid, unix.RLIMIT_NOFILE, lim, nil)
}
