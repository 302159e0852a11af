// Package metrics exposes prometheus collectors for contract invocations, transaction outcomes and
// manifest loads. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "faucet"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the collectors of the faucet kit.
type Metrics struct {
	invocations     *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	confirmDuration *prometheus.HistogramVec
	manifestLoads   *prometheus.CounterVec
	gatherer        prometheus.Gatherer
}

// New registers the collectors on reg. Passing a *prometheus.Registry also makes it the source of
// [Metrics.Handler].
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "contract",
				Name:      "invocations_total",
				Help:      "Contract calls and transactions by chain family, method, mode and result",
			},
			[]string{"family", "method", "mode", "result"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "outcomes_total",
				Help:      "Observed transaction outcomes by chain family and status",
			},
			[]string{"family", "status"},
		),
		confirmDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "tx",
				Name:      "confirm_duration_seconds",
				Help:      "Time spent waiting for a transaction outcome",
				Buckets:   []float64{1, 3, 6, 12, 30, 60, 120, 180, 300},
			},
			[]string{"family"},
		),
		manifestLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "manifest",
				Name:      "loads_total",
				Help:      "Deployment manifest load attempts by result",
			},
			[]string{"result"},
		),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	return m
}

// ObserveInvocation counts a call or send of method. Errors are labelled with their kind.
func (m *Metrics) ObserveInvocation(family, method, mode, result string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(family, method, mode, result).Inc()
}

// ObserveOutcome counts a transaction outcome and the time spent waiting for it.
func (m *Metrics) ObserveOutcome(family, status string, waited time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(family, status).Inc()
	m.confirmDuration.WithLabelValues(family).Observe(waited.Seconds())
}

// ObserveManifestLoad counts a manifest load attempt.
func (m *Metrics) ObserveManifestLoad(err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.manifestLoads.WithLabelValues(result).Inc()
}

// Handler serves the registry the metrics were registered on, or the default gatherer.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
