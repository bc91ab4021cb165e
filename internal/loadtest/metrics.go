package loadtest

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics métricas Prometheus do teste de carga em registry próprio
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	users    prometheus.Gauge
}

// NewMetrics cria e registra as métricas
func NewMetrics(architecture string) *Metrics {
	labels := prometheus.Labels{"architecture": architecture}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "hpa_bench_requests_total",
				Help:        "Requests issued by the load test",
				ConstLabels: labels,
			},
			[]string{"method", "name", "status", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "hpa_bench_request_duration_seconds",
				Help:        "Response time of load test requests",
				ConstLabels: labels,
				Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"method", "name"},
		),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "hpa_bench_users",
			Help:        "Simulated users currently running",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(m.requests, m.duration, m.users)
	return m
}

// Observe registra uma amostra (nil-safe)
func (m *Metrics) Observe(s Sample) {
	if m == nil {
		return
	}
	result := "success"
	if s.Failed() {
		result = "failure"
	}
	m.requests.WithLabelValues(s.Method, s.Name, strconv.Itoa(s.Status), result).Inc()
	m.duration.WithLabelValues(s.Method, s.Name).Observe(s.ResponseTime.Seconds())
}

// SetUsers atualiza o número de usuários ativos (nil-safe)
func (m *Metrics) SetUsers(n int) {
	if m == nil {
		return
	}
	m.users.Set(float64(n))
}

// Registry registry com as métricas do teste
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler handler HTTP /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
