package relay

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the relay's Prometheus collectors. All metrics use the
// "imgrelay" prefix and register against their own registry so tests can
// build servers without colliding on the default one.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BytesStreamed   prometheus.Counter
	UpstreamErrors  *prometheus.CounterVec
	InFlight        prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgrelay_requests_total",
			Help: "Total relay requests by path and status code",
		},
		[]string{"path", "code"},
	)
	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imgrelay_request_duration_seconds",
			Help:    "Relay request durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
	m.BytesStreamed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "imgrelay_bytes_streamed_total",
			Help: "Total image bytes relayed to clients",
		},
	)
	m.UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgrelay_upstream_errors_total",
			Help: "Upstream fetch failures by kind",
		},
		[]string{"kind"},
	)
	m.InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "imgrelay_in_flight_requests",
			Help: "Requests currently being handled",
		},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.BytesStreamed,
		m.UpstreamErrors,
		m.InFlight,
	)
	return m
}

func (m *Metrics) ObserveRequest(path string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
