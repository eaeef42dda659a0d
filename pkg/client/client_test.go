package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	mng "github.com/loykin/storegw/internal/manager"
	"github.com/loykin/storegw/internal/server"
	"github.com/loykin/storegw/internal/storenode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDaemon(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := server.NewRouter(mng.New(mng.Options{}), "")
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestClientPlanApplyStatusStop(t *testing.T) {
	c := newDaemon(t)
	ctx := context.Background()

	require.True(t, c.IsReachable(ctx))

	cfg := storenode.DefaultConfig()
	cfg.Ensure = storenode.EnsureAbsent
	cfg.ExtraParams = map[string]string{"log.level": "warn"}

	inv, err := c.Plan(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, storenode.RunStateStopped, inv.RunState)
	assert.Equal(t, "warn", inv.Args["log.level"])

	inv, err = c.Apply(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, storenode.RunStateStopped, inv.RunState)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Running)

	require.NoError(t, c.Stop(ctx, time.Second))
}

func TestClientDaemonError(t *testing.T) {
	c := newDaemon(t)
	cfg := storenode.DefaultConfig()
	cfg.Ensure = "broken"
	_, err := c.Apply(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure")
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Config{BaseURL: srv.URL, Timeout: 500 * time.Millisecond})
	assert.False(t, c.IsReachable(context.Background()))
	_, err := c.Status(context.Background())
	require.Error(t, err)
}

func TestDefaultsApplied(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultConfig().BaseURL, c.baseURL)
	assert.NotNil(t, c.logger)
}
