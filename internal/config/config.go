package config

import (
	"fmt"
	"time"

	"github.com/loykin/storegw/internal/logger"
	"github.com/loykin/storegw/internal/store"
	"github.com/loykin/storegw/internal/storenode"
	"github.com/spf13/viper"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Store     storenode.Config `toml:"store" mapstructure:"store"`
	Server    ServerConfig     `toml:"server" mapstructure:"server"`
	Log       *LogConfig       `toml:"log" mapstructure:"log"`
	State     *store.Config    `toml:"state" mapstructure:"state"`
	History   *HistoryConfig   `toml:"history" mapstructure:"history"`
	Supervise SuperviseConfig  `toml:"supervise" mapstructure:"supervise"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

// LogConfig covers both the daemon's own slog output and rotation settings
// for the supervised node's stdout/stderr capture.
type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	Stdout     string `toml:"stdout" mapstructure:"stdout"`
	Stderr     string `toml:"stderr" mapstructure:"stderr"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// ProcessLog converts the rotation settings into the capture config used for
// the supervised process. Returns nil when no capture destination is set.
func (l *LogConfig) ProcessLog() *logger.Config {
	if l == nil {
		return nil
	}
	if l.Dir == "" && l.Stdout == "" && l.Stderr == "" {
		return nil
	}
	return &logger.Config{
		Dir:        l.Dir,
		StdoutPath: l.Stdout,
		StderrPath: l.Stderr,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

type HistoryConfig struct {
	ClickHouseAddr  string `toml:"clickhouse_addr" mapstructure:"clickhouse_addr"`
	ClickHouseTable string `toml:"clickhouse_table" mapstructure:"clickhouse_table"`
	OpenSearchURL   string `toml:"opensearch_url" mapstructure:"opensearch_url"`
	OpenSearchIndex string `toml:"opensearch_index" mapstructure:"opensearch_index"`
}

type SuperviseConfig struct {
	AutoRestart     bool          `toml:"auto_restart" mapstructure:"auto_restart"`
	RestartInterval time.Duration `toml:"restart_interval" mapstructure:"restart_interval"`
	StopWait        time.Duration `toml:"stop_wait" mapstructure:"stop_wait"`
	PIDFile         string        `toml:"pidfile" mapstructure:"pidfile"`
	WorkDir         string        `toml:"workdir" mapstructure:"workdir"`
	Env             []string      `toml:"env" mapstructure:"env"`
}

// Load parses a TOML file into FileConfig. The [store] section starts from
// DefaultConfig, so omitted keys keep their defaults and only explicitly set
// keys override them.
//
// The viper key delimiter is changed away from "." because extra_params keys
// are flag names such as "log.level"; with the default delimiter viper would
// explode them into nested maps.
func Load(path string) (FileConfig, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	fc := FileConfig{
		Store: storenode.DefaultConfig(),
		Server: ServerConfig{
			Listen: "127.0.0.1:8440",
		},
		Supervise: SuperviseConfig{
			RestartInterval: time.Second,
			StopWait:        5 * time.Second,
		},
	}
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// LoadStore parses only the [store] section for commands that do not need the
// daemon-side settings.
func LoadStore(path string) (storenode.Config, error) {
	fc, err := Load(path)
	if err != nil {
		return storenode.Config{}, err
	}
	return fc.Store, nil
}
