package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's operational telemetry. One instance is built
// per process and injected; nothing registers against the global registry.
type Metrics struct {
	registry *prometheus.Registry

	JobsProcessed   prometheus.Counter
	JobsFailed      prometheus.Counter
	EventsProcessed prometheus.Counter
	EventsFailed    prometheus.Counter
	QueueDepth      prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		JobsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anpr_jobs_processed_total",
			Help: "Video jobs completed successfully.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anpr_jobs_failed_total",
			Help: "Video jobs that ended in failure.",
		}),
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anpr_events_processed_total",
			Help: "Detection events persisted.",
		}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anpr_events_failed_total",
			Help: "Detection events that could not be persisted.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "anpr_queue_depth",
			Help: "Jobs currently pending in the processing queue.",
		}),
	}

	reg.MustRegister(
		m.JobsProcessed,
		m.JobsFailed,
		m.EventsProcessed,
		m.EventsFailed,
		m.QueueDepth,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
