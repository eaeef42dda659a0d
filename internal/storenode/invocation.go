package storenode

import (
	"sort"
	"strconv"
)

// ServiceName is the subcommand of the target binary and the fixed name under
// which the node is reported to the lifecycle manager.
const ServiceName = "store"

// Invocation is the fully resolved process specification handed to the
// lifecycle manager. Args maps flag names to their literal textual values,
// with extra params already folded in.
type Invocation struct {
	Service      string            `json:"service"`
	RunState     RunState          `json:"run_state"`
	BinPath      string            `json:"bin_path"`
	User         string            `json:"user"`
	Group        string            `json:"group"`
	MaxOpenFiles *int              `json:"max_open_files,omitempty"`
	Args         map[string]string `json:"args"`
}

// arg is one row of the flag table: a fixed flag name, the stringified value,
// and whether the underlying field was set at all.
type arg struct {
	name  string
	value string
	set   bool
}

func optString(name string, v *string) arg {
	if v == nil {
		return arg{name: name}
	}
	return arg{name: name, value: *v, set: true}
}

func optInt(name string, v *int) arg {
	if v == nil {
		return arg{name: name}
	}
	return arg{name: name, value: strconv.Itoa(*v), set: true}
}

// args returns the complete flag table. The flag names here form the
// compatibility contract with the target binary and must not drift with the
// Go field names.
func (c *Config) args() []arg {
	return []arg{
		{name: "log.level", value: c.LogLevel, set: c.LogLevel != ""},
		{name: "log.format", value: c.LogFormat, set: c.LogFormat != ""},
		optString("tracing.config-file", c.TracingConfigFile),
		{name: "http-address", value: c.HTTPAddress, set: c.HTTPAddress != ""},
		optString("http-grace-period", c.HTTPGracePeriod),
		{name: "grpc-address", value: c.GRPCAddress, set: c.GRPCAddress != ""},
		optString("grpc-grace-period", c.GRPCGracePeriod),
		optString("grpc-server-tls-cert", c.GRPCServerTLSCert),
		optString("grpc-server-tls-key", c.GRPCServerTLSKey),
		optString("grpc-server-tls-client-ca", c.GRPCServerTLSClientCA),
		{name: "data-dir", value: c.DataDir, set: c.DataDir != ""},
		optString("index-cache.config-file", c.IndexCacheConfigFile),
		optString("index-cache-size", c.IndexCacheSize),
		optString("chunk-pool-size", c.ChunckPoolSize),
		optInt("store.grpc.series-sample-limit", c.StoreGRPCSeriesSampleLimit),
		optInt("store.grpc.series-max-concurrency", c.StoreGRPCSeriesMaxConcurrency),
		optString("objstore.config-file", c.ObjstoreConfigFile),
		optString("sync-block-duration", c.SyncBlockDuration),
		optInt("block-sync-concurrency", c.BlockSyncConcurrency),
		optString("min-time", c.MinTime),
		optString("max-time", c.MaxTime),
		optString("selector.relabel-config-file", c.SelectorRelabelConfigFile),
		optString("consistency-delay", c.ConsistencyDelay),
		optString("ignore-deletion-marks-delay", c.IgnoreDeletionMarksDelay),
		optString("web.external-prefix", c.WebExternalPrefix),
		optString("web.prefix-header", c.WebPrefixHeader),
	}
}

// BuildInvocation translates the configuration into a process specification.
// It is a pure function: no filesystem access, no process table access, and
// identical input always yields identical output. Unset options emit nothing;
// set options emit exactly one entry; extras overlay last and always win.
func (c *Config) BuildInvocation() (Invocation, error) {
	if err := c.Validate(); err != nil {
		return Invocation{}, err
	}
	table := c.args()
	args := make(map[string]string, len(table)+len(c.ExtraParams))
	for _, a := range table {
		if a.set {
			args[a.name] = a.value
		}
	}
	for k, v := range c.ExtraParams {
		args[k] = v
	}
	inv := Invocation{
		Service:  ServiceName,
		RunState: c.Ensure.RunState(),
		BinPath:  c.BinPath,
		User:     c.User,
		Group:    c.Group,
		Args:     args,
	}
	if c.MaxOpenFiles != nil {
		n := *c.MaxOpenFiles
		inv.MaxOpenFiles = &n
	}
	return inv, nil
}

// Argv renders the invocation as a command line. Flags are sorted by name so
// repeated builds from the same configuration compare equal.
func (inv Invocation) Argv() []string {
	names := make([]string, 0, len(inv.Args))
	for name := range inv.Args {
		names = append(names, name)
	}
	sort.Strings(names)
	argv := make([]string, 0, len(names)+2)
	argv = append(argv, inv.BinPath, inv.Service)
	for _, name := range names {
		argv = append(argv, "--"+name+"="+inv.Args[name])
	}
	return argv
}
