package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signaldesk",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API endpoints",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60, 120},
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signaldesk",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint",
		},
		[]string{"endpoint"},
	)

	ProgressClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "signaldesk",
			Subsystem: "api",
			Name:      "progress_clients",
			Help:      "Connected progress stream clients",
		},
	)
)

// Register adds the API collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, ProgressClients)
	})
}

// Observe records the latency of endpoint and counts server errors.
func Observe(endpoint string, start time.Time, status int) {
	APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if status >= 500 {
		APIErrors.WithLabelValues(endpoint).Inc()
	}
}
