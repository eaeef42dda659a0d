package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	mng "github.com/loykin/storegw/internal/manager"
	"github.com/loykin/storegw/internal/metrics"
	"github.com/loykin/storegw/internal/storenode"
)

// Router provides embeddable HTTP handlers for managing the store node.
// Endpoints:
//
//	POST {basePath}/plan     body: Config JSON -> computed Invocation, no side effects
//	POST {basePath}/apply    body: Config JSON -> converge and return Invocation
//	GET  {basePath}/status   current node status
//	POST {basePath}/stop     query: wait=5s (optional)
//	GET  {basePath}/metrics  Prometheus exposition
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	mgr      *mng.Manager
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/storegw" results in /storegw/apply, /storegw/status.
func NewRouter(mgr *mng.Manager, basePath string) *Router {
	return &Router{mgr: mgr, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/plan", r.handlePlan)
	group.POST("/apply", r.handleApply)
	group.GET("/status", r.handleStatus)
	group.POST("/stop", r.handleStop)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Call Close or Shutdown on the returned server to stop it.
func NewServer(addr, basePath string, mgr *mng.Manager) (*http.Server, error) {
	r := NewRouter(mgr, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", "addr", addr, "error", err)
		}
	}()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) bindConfig(c *gin.Context) (storenode.Config, bool) {
	cfg := storenode.DefaultConfig()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return storenode.Config{}, false
	}
	// path-like options end up on an exec command line; reject traversal early
	for _, p := range []string{cfg.BinPath, cfg.DataDir} {
		if p != "" && !isSafeAbsPath(p) {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid path: must be absolute without traversal"})
			return storenode.Config{}, false
		}
	}
	return cfg, true
}

func (r *Router) handlePlan(c *gin.Context) {
	cfg, ok := r.bindConfig(c)
	if !ok {
		return
	}
	inv, err := r.mgr.Plan(cfg)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, inv)
}

func (r *Router) handleApply(c *gin.Context) {
	cfg, ok := r.bindConfig(c)
	if !ok {
		return
	}
	inv, err := r.mgr.Apply(c.Request.Context(), cfg)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, inv)
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.mgr.Status())
}

func (r *Router) handleStop(c *gin.Context) {
	wait := 5 * time.Second
	if waitStr := c.Query("wait"); waitStr != "" {
		d, err := time.ParseDuration(waitStr)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid wait: " + err.Error()})
			return
		}
		wait = d
	}
	if err := r.mgr.Stop(wait); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
