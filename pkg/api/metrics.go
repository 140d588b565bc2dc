package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one server
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	predictions *prometheus.CounterVec
}

// NewMetrics creates collectors on a private registry, so several servers
// can live in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "titanic",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "titanic",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent producing predictions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "titanic",
			Name:      "predictions_total",
			Help:      "Predicted labels served.",
		}, []string{"survived"}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.predictions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) observePrediction(route string, start time.Time, labels []int) {
	m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	for _, l := range labels {
		m.predictions.WithLabelValues(strconv.Itoa(l)).Inc()
	}
}
