package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emostim"

// Metrics holds the Prometheus collectors for the server.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveStreams   prometheus.Gauge
	RejectedStreams prometheus.Counter
	BytesStreamed   prometheus.Counter
	ResponsesStored prometheus.Counter
}

// New registers collectors on a private registry so that several servers
// (tests in particular) can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "video",
			Name:      "active_streams",
			Help:      "Number of video streams currently being served",
		}),
		RejectedStreams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "video",
			Name:      "rejected_streams_total",
			Help:      "Video requests rejected because every stream slot was taken",
		}),
		BytesStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "video",
			Name:      "bytes_streamed_total",
			Help:      "Video bytes written to clients",
		}),
		ResponsesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "experiment",
			Name:      "responses_stored_total",
			Help:      "Rating submissions persisted",
		}),
	}

	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.ActiveStreams,
		m.RejectedStreams,
		m.BytesStreamed,
		m.ResponsesStored,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}
