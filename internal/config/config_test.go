package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/storegw/internal/storenode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storegw.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
[store]
ensure = "present"
user = "thanos"
group = "thanos"
bin_path = "/opt/thanos/bin/thanos"
log_level = "debug"
objstore_config_file = "/etc/thanos/bucket.yml"
store_grpc_series_sample_limit = 100
max_open_files = 65536

[store.extra_params]
"log.level" = "warn"
"experimental.flag" = "on"

[server]
listen = "127.0.0.1:9444"
base_path = "/storegw"

[log]
level = "info"
format = "json"
dir = "/var/log/storegw"
max_size_mb = 32

[state]
type = "sqlite"
path = "/var/lib/storegw/state.db"

[history]
clickhouse_addr = "127.0.0.1:9000"
clickhouse_table = "storegw_history"

[supervise]
auto_restart = true
restart_interval = "2s"
stop_wait = "10s"
pidfile = "/run/storegw/store.pid"
`)

	fc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, storenode.EnsurePresent, fc.Store.Ensure)
	assert.Equal(t, "/opt/thanos/bin/thanos", fc.Store.BinPath)
	assert.Equal(t, "debug", fc.Store.LogLevel)
	require.NotNil(t, fc.Store.ObjstoreConfigFile)
	assert.Equal(t, "/etc/thanos/bucket.yml", *fc.Store.ObjstoreConfigFile)
	require.NotNil(t, fc.Store.StoreGRPCSeriesSampleLimit)
	assert.Equal(t, 100, *fc.Store.StoreGRPCSeriesSampleLimit)
	require.NotNil(t, fc.Store.MaxOpenFiles)
	assert.Equal(t, 65536, *fc.Store.MaxOpenFiles)

	// dotted extra_params keys must survive as flat flag names
	assert.Equal(t, "warn", fc.Store.ExtraParams["log.level"])
	assert.Equal(t, "on", fc.Store.ExtraParams["experimental.flag"])

	assert.Equal(t, "127.0.0.1:9444", fc.Server.Listen)
	assert.Equal(t, "/storegw", fc.Server.BasePath)

	require.NotNil(t, fc.Log)
	assert.Equal(t, "json", fc.Log.Format)
	pl := fc.Log.ProcessLog()
	require.NotNil(t, pl)
	assert.Equal(t, "/var/log/storegw", pl.Dir)
	assert.Equal(t, 32, pl.MaxSizeMB)

	require.NotNil(t, fc.State)
	assert.Equal(t, "sqlite", fc.State.Type)
	assert.Equal(t, "/var/lib/storegw/state.db", fc.State.Path)

	require.NotNil(t, fc.History)
	assert.Equal(t, "127.0.0.1:9000", fc.History.ClickHouseAddr)

	assert.True(t, fc.Supervise.AutoRestart)
	assert.Equal(t, 2*time.Second, fc.Supervise.RestartInterval)
	assert.Equal(t, 10*time.Second, fc.Supervise.StopWait)
	assert.Equal(t, "/run/storegw/store.pid", fc.Supervise.PIDFile)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
[store]
ensure = "absent"
`)
	fc, err := Load(path)
	require.NoError(t, err)

	// unset [store] keys keep the conventional defaults
	assert.Equal(t, storenode.EnsureAbsent, fc.Store.Ensure)
	assert.Equal(t, "thanos", fc.Store.User)
	assert.Equal(t, "/usr/bin/thanos", fc.Store.BinPath)
	assert.Equal(t, "0.0.0.0:10902", fc.Store.HTTPAddress)
	require.NotNil(t, fc.Store.StoreGRPCSeriesSampleLimit)
	assert.Equal(t, 0, *fc.Store.StoreGRPCSeriesSampleLimit)
	assert.Nil(t, fc.Store.ObjstoreConfigFile)

	assert.Equal(t, "127.0.0.1:8440", fc.Server.Listen)
	assert.Equal(t, time.Second, fc.Supervise.RestartInterval)
	assert.Equal(t, 5*time.Second, fc.Supervise.StopWait)
	assert.Nil(t, fc.Log)
	assert.Nil(t, fc.State)
	assert.Nil(t, fc.History)

	require.NoError(t, fc.Store.Validate())
}

func TestLoadStoreSectionOnly(t *testing.T) {
	path := writeConfig(t, `
[store]
log_level = "warn"
min_time = "-2w"
`)
	cfg, err := LoadStore(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	require.NotNil(t, cfg.MinTime)
	assert.Equal(t, "-2w", *cfg.MinTime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadBadTOML(t *testing.T) {
	path := writeConfig(t, "[store\nensure=")
	_, err := Load(path)
	require.Error(t, err)
}

func TestProcessLogNil(t *testing.T) {
	var l *LogConfig
	assert.Nil(t, l.ProcessLog())
	assert.Nil(t, (&LogConfig{Level: "info"}).ProcessLog())
}
