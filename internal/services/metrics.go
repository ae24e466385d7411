package services

import (
	"github.com/SAP-F-2025/performance-report-service/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the pipeline's prometheus collectors. They are registered on the
// registerer given to NewMetrics so tests can use a private registry.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	graded   *prometheus.CounterVec
	cache    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// status: success or the failure kind
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_pipeline_runs_total",
				Help: "Total number of report pipeline runs",
			},
			[]string{"status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_pipeline_duration_seconds",
				Help:    "Time spent producing a report",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		graded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_graded_responses_total",
				Help: "Total number of graded responses by mastery category",
			},
			[]string{"category"},
		),
		// result: hit or miss
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_evaluation_cache_total",
				Help: "Evaluation cache lookups",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observeRun(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = ErrorKind(err)
	}
	m.runs.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) observeItems(items []models.GradedItem) {
	if m == nil {
		return
	}
	for _, item := range items {
		m.graded.WithLabelValues(string(item.Category)).Inc()
	}
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}
