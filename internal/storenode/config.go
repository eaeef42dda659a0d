package storenode

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration is wrapped by all structural validation failures.
// Callers can match it with errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Ensure is the declarative lifecycle intent for the store node.
type Ensure string

const (
	EnsurePresent Ensure = "present"
	EnsureAbsent  Ensure = "absent"
)

// RunState is the realized operational state the lifecycle manager converges to.
type RunState string

const (
	RunStateRunning RunState = "running"
	RunStateStopped RunState = "stopped"
)

// RunState projects lifecycle intent onto a run state. The mapping is total:
// present maps to running and every other (validated) value maps to stopped.
func (e Ensure) RunState() RunState {
	if e == EnsurePresent {
		return RunStateRunning
	}
	return RunStateStopped
}

// Config is the full set of options for one store node. Required identity
// fields (Ensure, User, Group, BinPath) are plain values; binary options that
// may be left unset are pointers, where nil means "do not pass the flag".
// Option values are carried as opaque text: the target binary owns all
// semantic validation of durations, sizes and time bounds.
type Config struct {
	Ensure  Ensure `json:"ensure" mapstructure:"ensure"`
	User    string `json:"user" mapstructure:"user"`
	Group   string `json:"group" mapstructure:"group"`
	BinPath string `json:"bin_path" mapstructure:"bin_path"`

	// MaxOpenFiles is the NOFILE rlimit for the process; nil keeps the
	// platform default. It is not a binary flag.
	MaxOpenFiles *int `json:"max_open_files,omitempty" mapstructure:"max_open_files"`

	LogLevel                      string  `json:"log_level" mapstructure:"log_level"`
	LogFormat                     string  `json:"log_format" mapstructure:"log_format"`
	TracingConfigFile             *string `json:"tracing_config_file,omitempty" mapstructure:"tracing_config_file"`
	HTTPAddress                   string  `json:"http_address" mapstructure:"http_address"`
	HTTPGracePeriod               *string `json:"http_grace_period,omitempty" mapstructure:"http_grace_period"`
	GRPCAddress                   string  `json:"grpc_address" mapstructure:"grpc_address"`
	GRPCGracePeriod               *string `json:"grpc_grace_period,omitempty" mapstructure:"grpc_grace_period"`
	GRPCServerTLSCert             *string `json:"grpc_server_tls_cert,omitempty" mapstructure:"grpc_server_tls_cert"`
	GRPCServerTLSKey              *string `json:"grpc_server_tls_key,omitempty" mapstructure:"grpc_server_tls_key"`
	GRPCServerTLSClientCA         *string `json:"grpc_server_tls_client_ca,omitempty" mapstructure:"grpc_server_tls_client_ca"`
	DataDir                       string  `json:"data_dir" mapstructure:"data_dir"`
	IndexCacheConfigFile          *string `json:"index_cache_config_file,omitempty" mapstructure:"index_cache_config_file"`
	IndexCacheSize                *string `json:"index_cache_size,omitempty" mapstructure:"index_cache_size"`
	StoreGRPCSeriesSampleLimit    *int    `json:"store_grpc_series_sample_limit,omitempty" mapstructure:"store_grpc_series_sample_limit"`
	StoreGRPCSeriesMaxConcurrency *int    `json:"store_grpc_series_max_concurrency,omitempty" mapstructure:"store_grpc_series_max_concurrency"`
	ObjstoreConfigFile            *string `json:"objstore_config_file,omitempty" mapstructure:"objstore_config_file"`
	SyncBlockDuration             *string `json:"sync_block_duration,omitempty" mapstructure:"sync_block_duration"`
	BlockSyncConcurrency          *int    `json:"block_sync_concurrency,omitempty" mapstructure:"block_sync_concurrency"`
	MinTime                       *string `json:"min_time,omitempty" mapstructure:"min_time"`
	MaxTime                       *string `json:"max_time,omitempty" mapstructure:"max_time"`
	SelectorRelabelConfigFile     *string `json:"selector_relabel_config_file,omitempty" mapstructure:"selector_relabel_config_file"`
	ConsistencyDelay              *string `json:"consistency_delay,omitempty" mapstructure:"consistency_delay"`
	IgnoreDeletionMarksDelay      *string `json:"ignore_deletion_marks_delay,omitempty" mapstructure:"ignore_deletion_marks_delay"`
	WebExternalPrefix             *string `json:"web_external_prefix,omitempty" mapstructure:"web_external_prefix"`
	WebPrefixHeader               *string `json:"web_prefix_header,omitempty" mapstructure:"web_prefix_header"`

	// ChunckPoolSize keeps its historical field name; it is emitted under the
	// flag name "chunk-pool-size" regardless.
	ChunckPoolSize *string `json:"chunck_pool_size,omitempty" mapstructure:"chunck_pool_size"`

	// ExtraParams are free-form flag-name to value entries applied after the
	// generated options. A key that collides with a generated flag replaces it
	// (extras always win), including load-bearing flags such as data-dir.
	ExtraParams map[string]string `json:"extra_params,omitempty" mapstructure:"extra_params"`
}

// DefaultConfig returns a Config with the conventional defaults for a single
// store node. Optional options stay unset so nothing is emitted for them.
func DefaultConfig() Config {
	return Config{
		Ensure:                     EnsurePresent,
		User:                       "thanos",
		Group:                      "thanos",
		BinPath:                    "/usr/bin/thanos",
		LogLevel:                   "info",
		LogFormat:                  "logfmt",
		HTTPAddress:                "0.0.0.0:10902",
		GRPCAddress:                "0.0.0.0:10901",
		DataDir:                    "/var/lib/thanos/store",
		StoreGRPCSeriesSampleLimit: Int(0),
	}
}

// Validate checks structural shape only. It never touches the filesystem and
// never interprets option values.
func (c *Config) Validate() error {
	switch c.Ensure {
	case EnsurePresent, EnsureAbsent:
	default:
		return fmt.Errorf("%w: ensure must be %q or %q, got %q", ErrInvalidConfiguration, EnsurePresent, EnsureAbsent, c.Ensure)
	}
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(c.Group) == "" {
		return fmt.Errorf("%w: group is required", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(c.BinPath) == "" {
		return fmt.Errorf("%w: bin_path is required", ErrInvalidConfiguration)
	}
	if c.MaxOpenFiles != nil && *c.MaxOpenFiles <= 0 {
		return fmt.Errorf("%w: max_open_files must be positive, got %d", ErrInvalidConfiguration, *c.MaxOpenFiles)
	}
	return nil
}

// String and Int return pointers to their arguments. They keep construction
// of optional fields readable at call sites.
func String(s string) *string { return &s }

func Int(n int) *int { return &n }
