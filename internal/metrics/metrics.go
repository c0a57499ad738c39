// Package metrics exposes Prometheus instrumentation for the clip agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clipagent"

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeUnavailable = "unavailable"
	OutcomeSkipped     = "skipped"
)

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Engine holds the session engine's metrics. All methods are safe on a nil
// receiver so components can run uninstrumented.
type Engine struct {
	SessionsLive      prometheus.Gauge
	SessionsEvicted   prometheus.Counter
	ClipMutations     *prometheus.CounterVec
	SnapshotWrites    *prometheus.CounterVec
	PlayerLookups     *prometheus.CounterVec
	BreakerState      prometheus.Gauge
	RenderDispatches  prometheus.Counter
	RenderCompletions *prometheus.CounterVec
}

// NewEngine creates and registers engine metrics on the given registry.
func NewEngine(reg prometheus.Registerer) *Engine {
	m := &Engine{
		SessionsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "live",
			Help:      "Number of sessions held in memory.",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "evicted_total",
			Help:      "Total number of sessions evicted for idleness.",
		}),
		ClipMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clips",
			Name:      "mutations_total",
			Help:      "Clip mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autosave",
			Name:      "writes_total",
			Help:      "Snapshot persist attempts by outcome.",
		}, []string{"outcome"}),
		PlayerLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "player",
			Name:      "lookups_total",
			Help:      "Media player lookups by outcome.",
		}, []string{"outcome"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "player",
			Name:      "breaker_state",
			Help:      "Media player circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		RenderDispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "dispatches_total",
			Help:      "Total render jobs dispatched.",
		}),
		RenderCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "completions_total",
			Help:      "Render job completions by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.SessionsLive, m.SessionsEvicted, m.ClipMutations, m.SnapshotWrites,
		m.PlayerLookups, m.BreakerState, m.RenderDispatches, m.RenderCompletions,
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

func (m *Engine) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsLive.Set(float64(n))
}

func (m *Engine) AddEvicted(n int) {
	if m == nil {
		return
	}
	m.SessionsEvicted.Add(float64(n))
}

func (m *Engine) ObserveMutation(op string, err error) {
	if m == nil {
		return
	}
	m.ClipMutations.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Engine) ObserveSnapshotWrite(outcome string) {
	if m == nil {
		return
	}
	m.SnapshotWrites.WithLabelValues(outcome).Inc()
}

func (m *Engine) ObservePlayerLookup(outcome string) {
	if m == nil {
		return
	}
	m.PlayerLookups.WithLabelValues(outcome).Inc()
}

func (m *Engine) SetBreakerState(state float64) {
	if m == nil {
		return
	}
	m.BreakerState.Set(state)
}

func (m *Engine) ObserveRenderDispatch() {
	if m == nil {
		return
	}
	m.RenderDispatches.Inc()
}

func (m *Engine) ObserveRenderCompletion(err error) {
	if m == nil {
		return
	}
	m.RenderCompletions.WithLabelValues(outcome(err)).Inc()
}
