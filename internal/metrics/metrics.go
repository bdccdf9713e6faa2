package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes.
const (
	ResolutionRedirect = "redirect"
	ResolutionNotFound = "not_found"
	ResolutionExpired  = "expired"
)

// Telemetry delivery outcomes.
const (
	TelemetryDelivered = "delivered"
	TelemetryFailed    = "failed"
	TelemetryDropped   = "dropped"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// All methods are safe to call on a nil receiver.
type Metrics struct {
	registry        *prometheus.Registry
	linksCreated    prometheus.Counter
	resolutions     *prometheus.CounterVec
	telemetryEvents *prometheus.CounterVec
}

// New creates and registers the service metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkshort_links_created_total",
			Help: "Total number of short links created",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshort_link_resolutions_total",
			Help: "Short link resolutions by outcome",
		}, []string{"result"}),
		telemetryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkshort_telemetry_events_total",
			Help: "Telemetry events by delivery outcome",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.linksCreated,
		m.resolutions,
		m.telemetryEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// LinkCreated counts a successful link creation.
func (m *Metrics) LinkCreated() {
	if m == nil {
		return
	}

	m.linksCreated.Inc()
}

// LinkResolved counts a resolution attempt by outcome.
func (m *Metrics) LinkResolved(result string) {
	if m == nil {
		return
	}

	m.resolutions.WithLabelValues(result).Inc()
}

// TelemetryEvent counts a telemetry event by delivery outcome.
func (m *Metrics) TelemetryEvent(outcome string) {
	if m == nil {
		return
	}

	m.telemetryEvents.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
