package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/storegw/internal/history"
	"github.com/loykin/storegw/internal/storenode"
)

// setupClickHouseContainer starts a ClickHouse container; it skips the test
// when Docker is unavailable.
func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	container, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start ClickHouse container: %v", err)
		return nil, ""
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Skipf("Failed to get container host: %v", err)
		return nil, ""
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Skipf("Failed to get mapped port: %v", err)
		return nil, ""
	}
	return container, host + ":" + port.Port()
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, addr := setupClickHouseContainer(ctx, t)
	defer func() {
		if container != nil {
			_ = container.Terminate(ctx)
		}
	}()

	sink, err := New(addr, "storegw_events")
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	t.Cleanup(func() { _ = sink.Close() })

	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	e := history.Event{
		Type:       history.EventApply,
		OccurredAt: time.Now().UTC(),
		Node:       "store",
		RunState:   storenode.RunStateRunning,
		PID:        17,
		Argv:       "/usr/bin/thanos store --log.level=info",
	}
	if err := sink.Send(ctx, e); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Read the row back to prove it landed.
	rows, err := sink.conn.Query(ctx, "SELECT type, node, pid FROM storegw_events")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var found bool
	for rows.Next() {
		var typ, node string
		var pid int64
		if err := rows.Scan(&typ, &node, &pid); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if typ == "apply" && node == "store" && pid == 17 {
			found = true
		}
	}
	if !found {
		t.Fatalf("inserted event not found")
	}
}
