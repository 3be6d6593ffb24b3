package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClientMetrics counts what the API pipeline does. A nil *ClientMetrics is
// valid and records nothing.
type ClientMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	forcedLogouts   prometheus.Counter
	maintenance     prometheus.Counter
	polls           *prometheus.CounterVec
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_client_requests_total",
				Help: "API requests by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warehouse_client_request_duration_seconds",
				Help:    "API request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_client_token_refreshes_total",
				Help: "Access token refresh attempts by result.",
			},
			[]string{"result"},
		),
		forcedLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_client_forced_logouts_total",
			Help: "Sessions terminated after an unrecoverable auth failure.",
		}),
		maintenance: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warehouse_client_maintenance_total",
			Help: "Responses that signalled server maintenance.",
		}),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warehouse_client_notification_polls_total",
				Help: "Notification polls by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.refreshes, m.forcedLogouts, m.maintenance, m.polls)
	return m
}

func (m *ClientMetrics) ObserveRequest(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *ClientMetrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *ClientMetrics) ForcedLogout() {
	if m == nil {
		return
	}
	m.forcedLogouts.Inc()
}

func (m *ClientMetrics) Maintenance() {
	if m == nil {
		return
	}
	m.maintenance.Inc()
}

func (m *ClientMetrics) Poll(result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
}

// ServerMetrics instruments the development backend.
type ServerMetrics struct {
	inFlight        prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	reg.MustRegister(m.inFlight, m.requestsTotal, m.requestDuration)
	return m
}

// Instrument records RPS, latency and in-flight requests. The path label is
// the chi route pattern so ids do not explode cardinality.
func (m *ServerMetrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := strconv.Itoa(sw.code)
		m.requestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// Handler serves the metrics of the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
