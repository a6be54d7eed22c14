// Package metrics holds the Prometheus collectors of the supply service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "supply"

// Metrics groups the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	recomputes     *prometheus.CounterVec
	recomputeTime  *prometheus.HistogramVec
	lotAlerts      *prometheus.CounterVec
	coercionErrors *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	scannedTenants prometheus.Counter
}

// New creates the collectors. Process and Go runtime collectors are added
// when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
			collectors.NewGoCollector(),
		)
	}

	m := &Metrics{
		registry: reg,
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coverage_recomputes_total",
			Help:      "Coverage recomputations by aggregation strategy and whether a line restriction applied.",
		}, []string{"strategy", "scoped"}),
		recomputeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "coverage_recompute_seconds",
			Help:      "Time spent recomputing coverage for one record.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5},
		}, []string{"strategy"}),
		lotAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lot_alerts_total",
			Help:      "Lot alerts announced by the scanner, by state.",
		}, []string{"state"}),
		coercionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coercion_diagnostics_total",
			Help:      "Malformed numeric inputs replaced by zero, by field.",
		}, []string{"field"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alert_scan_seconds",
			Help:      "Duration of one alert scan over all tenants.",
			Buckets:   prometheus.DefBuckets,
		}),
		scannedTenants: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_scan_tenants_total",
			Help:      "Tenants processed by the alert scanner.",
		}),
	}

	reg.MustRegister(m.recomputes, m.recomputeTime, m.lotAlerts, m.coercionErrors, m.scanDuration, m.scannedTenants)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRecompute counts one recompute and its duration.
func (m *Metrics) ObserveRecompute(strategy string, scoped bool, took time.Duration) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(strategy, strconv.FormatBool(scoped)).Inc()
	m.recomputeTime.WithLabelValues(strategy).Observe(took.Seconds())
}

// LotAlert counts one announced lot alert.
func (m *Metrics) LotAlert(state string) {
	if m == nil {
		return
	}
	m.lotAlerts.WithLabelValues(state).Inc()
}

// CoercionDiagnostic counts one malformed numeric value.
func (m *Metrics) CoercionDiagnostic(field string) {
	if m == nil {
		return
	}
	m.coercionErrors.WithLabelValues(field).Inc()
}

// ObserveScan records one scheduler pass.
func (m *Metrics) ObserveScan(tenants int, took time.Duration) {
	if m == nil {
		return
	}
	m.scannedTenants.Add(float64(tenants))
	m.scanDuration.Observe(took.Seconds())
}
