package storegw

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFacade(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraParams = map[string]string{"log.level": "warn"}
	inv, err := Plan(cfg)
	require.NoError(t, err)
	assert.Equal(t, RunState("running"), inv.RunState)
	assert.Equal(t, "warn", inv.Args["log.level"])
}

func TestPlanFacadeInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BinPath = ""
	_, err := Plan(cfg)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestManagerFacadeAbsent(t *testing.T) {
	m := New()
	cfg := DefaultConfig()
	cfg.Ensure = "absent"
	inv, err := m.Apply(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, RunState("stopped"), inv.RunState)
	assert.False(t, m.Status().Running)
}

func TestLoadConfigFacade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storegw.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\nlog_level = \"debug\"\n"), 0o644))
	fc, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", fc.Store.LogLevel)
}

func TestRegisterMetricsDefault(t *testing.T) {
	require.NoError(t, RegisterMetricsDefault())
	// second registration is tolerated
	require.NoError(t, RegisterMetricsDefault())
}
