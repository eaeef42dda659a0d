//go:build windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

func configureSysProcAttr(cmd *exec.Cmd, _ *syscall.Credential) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// lookupCredential is a no-op on Windows; the child inherits our identity.
func lookupCredential(_, _ string) (*syscall.Credential, error) { return nil, nil }

func terminateGroup(pid int) {
	if p, err := os.FindProcess(pid); err == nil {
		_ = p.Kill()
	}
}

func killGroup(pid int) { terminateGroup(pid) }
