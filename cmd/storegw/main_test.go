package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRootSubcommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{"plan": false, "apply": false, "status": false, "stop": false, "serve": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		assert.True(t, found, "missing subcommand %s", name)
	}
}

func TestPlanCommandWithConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storegw.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
ensure = "present"
log_level = "debug"
`), 0o644))

	root := buildRoot()
	root.SetArgs([]string{"plan", "--config", path})
	require.NoError(t, root.Execute())

	root = buildRoot()
	root.SetArgs([]string{"plan", "--config", path, "--argv"})
	require.NoError(t, root.Execute())
}

func TestPlanCommandWithoutConfig(t *testing.T) {
	// falls back to the built-in defaults
	root := buildRoot()
	root.SetArgs([]string{"plan"})
	require.NoError(t, root.Execute())
}

func TestPlanCommandBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storegw.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
ensure = "maybe"
`), 0o644))

	root := buildRoot()
	root.SetArgs([]string{"plan", "--config", path})
	root.SilenceErrors = true
	root.SilenceUsage = true
	require.Error(t, root.Execute())
}

func TestApplyCommandNoDaemon(t *testing.T) {
	c := command{}
	err := c.Apply(ApplyFlags{APIUrl: "http://127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon not reachable")
}
