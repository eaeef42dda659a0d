package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loykin/storegw"
	"github.com/loykin/storegw/internal/config"
	"github.com/loykin/storegw/internal/history"
	"github.com/loykin/storegw/internal/history/clickhouse"
	"github.com/loykin/storegw/internal/history/opensearch"
	"github.com/loykin/storegw/internal/logger"
	"github.com/loykin/storegw/internal/store"
	"github.com/loykin/storegw/internal/storenode"
	"github.com/loykin/storegw/pkg/client"

	_ "github.com/loykin/storegw/internal/store/postgres"
	_ "github.com/loykin/storegw/internal/store/sqlite"
)

type command struct{}

const defaultAPIURL = "http://127.0.0.1:8440"

func newAPIClient(apiURL string, timeout time.Duration) *client.Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return client.New(client.Config{BaseURL: apiURL, Timeout: timeout})
}

// Plan computes the invocation locally and prints it. No daemon involved.
func (c command) Plan(f PlanFlags) error {
	cfg, err := loadStoreConfig(f.ConfigPath)
	if err != nil {
		return err
	}
	inv, err := storegw.Plan(cfg)
	if err != nil {
		return err
	}
	if f.Argv {
		fmt.Println(strings.Join(inv.Argv(), " "))
		return nil
	}
	printJSON(inv)
	return nil
}

// Apply submits the configuration to the daemon for convergence.
func (c command) Apply(f ApplyFlags) error {
	cfg, err := loadStoreConfig(f.ConfigPath)
	if err != nil {
		return err
	}
	if f.Ensure != "" {
		cfg.Ensure = storenode.Ensure(f.Ensure)
	}
	api := newAPIClient(f.APIUrl, f.APITimeout)
	ctx := context.Background()
	if !api.IsReachable(ctx) {
		return fmt.Errorf("daemon not reachable - start it first with 'storegw serve'")
	}
	inv, err := api.Apply(ctx, cfg)
	if err != nil {
		return err
	}
	printJSON(inv)
	return nil
}

func (c command) Status(f StatusFlags) error {
	api := newAPIClient(f.APIUrl, f.APITimeout)
	st, err := api.Status(context.Background())
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func (c command) Stop(f StopFlags) error {
	api := newAPIClient(f.APIUrl, f.APITimeout)
	if err := api.Stop(context.Background(), f.Wait); err != nil {
		return err
	}
	st, err := api.Status(context.Background())
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

// Serve runs the daemon until done is closed.
func (c command) Serve(f ServeFlags, done <-chan struct{}) error {
	if f.ConfigPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=storegw.toml or provide as argument")
	}
	fc, err := config.Load(f.ConfigPath)
	if err != nil {
		return err
	}

	level, format := "info", "text"
	if fc.Log != nil {
		if fc.Log.Level != "" {
			level = fc.Log.Level
		}
		if fc.Log.Format != "" {
			format = fc.Log.Format
		}
	}
	log := logger.Setup(level, format)
	slog.SetDefault(log)

	opts := storegw.Options{
		AutoRestart:     fc.Supervise.AutoRestart,
		RestartInterval: fc.Supervise.RestartInterval,
		StopWait:        fc.Supervise.StopWait,
		PIDFile:         fc.Supervise.PIDFile,
		WorkDir:         fc.Supervise.WorkDir,
		Env:             fc.Supervise.Env,
	}
	if pl := fc.Log.ProcessLog(); pl != nil {
		opts.Log = *pl
	}
	mgr := storegw.NewWithOptions(opts)

	if fc.State != nil && fc.State.Type != "" {
		s, err := store.New(*fc.State)
		if err != nil {
			return fmt.Errorf("open state store: %w", err)
		}
		if err := mgr.SetStore(s); err != nil {
			return fmt.Errorf("init state store: %w", err)
		}
	}

	sinks, err := buildHistorySinks(fc.History)
	if err != nil {
		return err
	}
	if len(sinks) > 0 {
		mgr.SetHistorySinks(sinks...)
	}

	if err := storegw.RegisterMetricsDefault(); err != nil {
		log.Warn("metrics registration failed", "error", err)
	}

	listen := fc.Server.Listen
	if f.Listen != "" {
		listen = f.Listen
	}
	srv, err := storegw.NewHTTPServer(listen, fc.Server.BasePath, mgr)
	if err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	log.Info("daemon started", "listen", listen, "base_path", fc.Server.BasePath)

	// converge to the configured desired state on startup
	if inv, err := mgr.Apply(context.Background(), fc.Store); err != nil {
		log.Error("initial apply failed", "error", err)
	} else {
		log.Info("initial apply done", "run_state", inv.RunState)
	}

	<-done
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	mgr.Shutdown(fc.Supervise.StopWait)
	return nil
}

func buildHistorySinks(hc *config.HistoryConfig) ([]history.Sink, error) {
	if hc == nil {
		return nil, nil
	}
	var sinks []history.Sink
	if hc.ClickHouseAddr != "" {
		s, err := clickhouse.New(hc.ClickHouseAddr, hc.ClickHouseTable)
		if err != nil {
			return nil, fmt.Errorf("clickhouse history sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if hc.OpenSearchURL != "" {
		sinks = append(sinks, opensearch.New(hc.OpenSearchURL, hc.OpenSearchIndex))
	}
	return sinks, nil
}

func loadStoreConfig(path string) (storenode.Config, error) {
	if path == "" {
		return storenode.DefaultConfig(), nil
	}
	return config.LoadStore(path)
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
