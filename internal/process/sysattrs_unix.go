//go:build !windows

package process

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"
)

// configureSysProcAttr places the child in its own process group so the whole
// tree can be signaled, and applies credentials when they differ from ours.
func configureSysProcAttr(cmd *exec.Cmd, cred *syscall.Credential) {
	attrs := &syscall.SysProcAttr{Setpgid: true}
	if cred != nil {
		attrs.Credential = cred
	}
	cmd.SysProcAttr = attrs
}

// lookupCredential resolves user/group names to a Credential. It returns nil
// when the target identity is already the current one, so unprivileged runs
// keep working.
func lookupCredential(userName, groupName string) (*syscall.Credential, error) {
	if userName == "" && groupName == "" {
		return nil, nil
	}
	uid := os.Getuid()
	gid := os.Getgid()
	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return nil, fmt.Errorf("lookup user %q: %w", userName, err)
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return nil, fmt.Errorf("parse uid %q: %w", u.Uid, err)
		}
		if groupName == "" {
			gid, err = strconv.Atoi(u.Gid)
			if err != nil {
				return nil, fmt.Errorf("parse gid %q: %w", u.Gid, err)
			}
		}
	}
	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return nil, fmt.Errorf("lookup group %q: %w", groupName, err)
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return nil, fmt.Errorf("parse gid %q: %w", g.Gid, err)
		}
	}
	if uid == os.Getuid() && gid == os.Getgid() {
		return nil, nil
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}

// terminateGroup sends SIGTERM to the process group.
func terminateGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
}

// killGroup sends SIGKILL to the process group.
func killGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
