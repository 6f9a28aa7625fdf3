package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inbox_otp_bot"

// Outcome labels for Requests.
const (
	OutcomeFound        = "found"
	OutcomeNotFound     = "not_found"
	OutcomeUnrecognized = "unrecognized"
	OutcomeRateLimited  = "rate_limited"
	OutcomeReplied      = "replied"
)

type Metrics struct {
	Requests         *prometheus.CounterVec
	MessagesScanned  prometheus.Counter
	MessagesSkipped  prometheus.Counter
	FetchFailures    *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	InFlightRequests prometheus.Gauge

	registry *prometheus.Registry
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chat requests handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		MessagesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_scanned_total",
			Help:      "Messages decoded while searching a mailbox.",
		}),
		MessagesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_skipped_total",
			Help:      "Messages skipped because they could not be decoded.",
		}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Mailbox fetches that failed, by reason.",
		}, []string{"reason"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent connecting to and scanning a mailbox.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider", "mode"}),
		InFlightRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_requests",
			Help:      "Requests currently being handled.",
		}),
		registry: registry,
	}
}

func (m *Metrics) MessageScanned() {
	m.MessagesScanned.Inc()
}

func (m *Metrics) MessageSkipped() {
	m.MessagesSkipped.Inc()
}

func (m *Metrics) ObserveFetch(provider, mode string, started time.Time) {
	m.FetchDuration.WithLabelValues(provider, mode).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
