package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServeRequiresConfig(t *testing.T) {
	c := command{}
	err := c.Serve(ServeFlags{}, nil)
	require.Error(t, err)
}

func TestServeStartsAndShutsDown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storegw.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
ensure = "absent"

[server]
listen = "127.0.0.1:0"

[state]
type = "sqlite"
path = ":memory:"
`), 0o644))

	done := make(chan struct{})
	errCh := make(chan error, 1)
	c := command{}
	go func() { errCh <- c.Serve(ServeFlags{ConfigPath: path}, done) }()

	// let the daemon come up, then ask it to stop
	time.Sleep(200 * time.Millisecond)
	close(done)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServeBadStateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storegw.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
ensure = "absent"

[state]
type = "etcd"
`), 0o644))

	c := command{}
	err := c.Serve(ServeFlags{ConfigPath: path}, nil)
	require.Error(t, err)
}
