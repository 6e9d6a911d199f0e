package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	StubsListedTotal prometheus.Counter
	DetailsTotal     *prometheus.CounterVec
	RetriesTotal     prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	GateInFlight     prometheus.Gauge
	SeenItems        prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)
	stubsListed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_stubs_listed_total",
			Help: "Total number of listing entries enumerated.",
		},
	)
	details := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_details_total",
			Help: "Detail fetches by outcome.",
		},
		[]string{"outcome"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_detail_requests_in_flight",
			Help: "Detail requests currently holding the concurrency gate.",
		},
	)
	seen := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_seen_items",
			Help: "Identifiers in the persisted seen set after the last run.",
		},
	)

	registry.MustRegister(requests, requestDuration, stubsListed, details, retries, errorsTotal, inFlight, seen)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		StubsListedTotal: stubsListed,
		DetailsTotal:     details,
		RetriesTotal:     retries,
		ErrorsTotal:      errorsTotal,
		GateInFlight:     inFlight,
		SeenItems:        seen,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// AddListed counts enumerated listing entries.
func (m *Metrics) AddListed(n int) {
	if m == nil {
		return
	}
	m.StubsListedTotal.Add(float64(n))
}

// IncDetail counts a finished detail fetch.
func (m *Metrics) IncDetail(outcome string) {
	if m == nil {
		return
	}
	m.DetailsTotal.WithLabelValues(outcome).Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetSeen records the size of the persisted seen set.
func (m *Metrics) SetSeen(n int) {
	if m == nil {
		return
	}
	m.SeenItems.Set(float64(n))
}

func (m *Metrics) gateGauge() prometheus.Gauge {
	if m == nil {
		return nil
	}
	return m.GateInFlight
}
