package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	taskTotal    *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	taskInFlight *prometheus.GaugeVec
	queueLag     *prometheus.HistogramVec
	piiRegions   *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	taskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tdv",
			Subsystem: "worker",
			Name:      "task_total",
			Help:      "Total processed tasks by kind and status.",
		},
		[]string{"service", "task", "status"},
	)
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tdv",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Task processing duration in seconds by kind and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "task", "status"},
	)
	taskInFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tdv",
			Subsystem: "worker",
			Name:      "task_in_flight",
			Help:      "Number of in-flight tasks by kind.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"task"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tdv",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document creation and task start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "task"},
	)
	piiRegions := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tdv",
			Subsystem: "worker",
			Name:      "pii_regions_per_document",
			Help:      "Redacted region count per successfully processed document.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(taskTotal, taskDuration, taskInFlight, queueLag, piiRegions)

	return &WorkerMetrics{
		registry:     registry,
		taskTotal:    taskTotal,
		taskDuration: taskDuration,
		taskInFlight: taskInFlight,
		queueLag:     queueLag,
		piiRegions:   piiRegions,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartTask(task string) {
	m.taskInFlight.WithLabelValues(task).Inc()
}

func (m *WorkerMetrics) FinishTask(service, task string, duration time.Duration, err error) {
	m.taskInFlight.WithLabelValues(task).Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.taskTotal.WithLabelValues(service, task, status).Inc()
	m.taskDuration.WithLabelValues(service, task, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service, task string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service, task).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObservePIIRegions(service string, count int) {
	m.piiRegions.WithLabelValues(service).Observe(float64(count))
}
