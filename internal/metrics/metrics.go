// Package metrics exposes the agent's Prometheus counters and gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heimdex/heimdex-editor/internal/export"
)

// Metrics holds the Prometheus collectors for the editor agent.
type Metrics struct {
	registry       *prometheus.Registry
	requestsTotal  prometheus.Counter
	errorsTotal    prometheus.Counter
	activeSessions prometheus.Gauge
	exportsStarted prometheus.Counter
	exportsEnded   *prometheus.CounterVec
	statusPolls    prometheus.Counter
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "editor_active_sessions",
			Help: "Number of open editing sessions",
		}),
		exportsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_exports_started_total",
			Help: "Total number of exports submitted to the renderer",
		}),
		exportsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editor_exports_finished_total",
			Help: "Exports that reached a terminal phase, by outcome",
		}, []string{"outcome"}),
		statusPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editor_export_status_polls_total",
			Help: "Renderer status responses received while polling",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.activeSessions,
		m.exportsStarted,
		m.exportsEnded,
		m.statusPolls,
	)
	return m
}

func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// OnJobUpdate makes Metrics an export observer. The first snapshot of a job
// counts as a start; polling snapshots count as status polls; terminal
// snapshots are counted by outcome ("completed" or the failure kind).
func (m *Metrics) OnJobUpdate(j export.Job) {
	switch j.Phase {
	case export.PhaseUploading:
		m.exportsStarted.Inc()
	case export.PhasePolling:
		if j.Polls > 0 {
			m.statusPolls.Inc()
		}
	case export.PhaseCompleted:
		m.exportsEnded.WithLabelValues("completed").Inc()
	case export.PhaseFailed:
		m.exportsEnded.WithLabelValues(string(j.FailureKind)).Inc()
	}
}

// Handler serves the registry. updateGauges runs before each scrape.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
