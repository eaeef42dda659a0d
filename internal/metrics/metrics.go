package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	applies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storegw",
			Subsystem: "node",
			Name:      "applies_total",
			Help:      "Number of apply operations, by result.",
		}, []string{"node", "result"},
	)
	starts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storegw",
			Subsystem: "node",
			Name:      "starts_total",
			Help:      "Number of successful node starts.",
		}, []string{"node"},
	)
	stops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storegw",
			Subsystem: "node",
			Name:      "stops_total",
			Help:      "Number of node stops (graceful or kill).",
		}, []string{"node"},
	)
	restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storegw",
			Subsystem: "node",
			Name:      "restarts_total",
			Help:      "Number of auto restarts.",
		}, []string{"node"},
	)
	runState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "storegw",
			Subsystem: "node",
			Name:      "run_state",
			Help:      "Current run state per node (1 = active state, 0 = inactive).",
		}, []string{"node", "state"},
	)
)

// Register registers all collectors with r. Safe to call multiple times;
// calls after the first success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{applies, starts, stops, restarts, runState}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncApply(node, result string) {
	if regOK.Load() {
		applies.WithLabelValues(node, result).Inc()
	}
}

func IncStart(node string) {
	if regOK.Load() {
		starts.WithLabelValues(node).Inc()
	}
}

func IncStop(node string) {
	if regOK.Load() {
		stops.WithLabelValues(node).Inc()
	}
}

func IncRestart(node string) {
	if regOK.Load() {
		restarts.WithLabelValues(node).Inc()
	}
}

// SetRunState flips the state gauges so exactly one state reads 1.
func SetRunState(node, state string) {
	if !regOK.Load() {
		return
	}
	for _, s := range []string{"running", "stopped"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		runState.WithLabelValues(node, s).Set(v)
	}
}
