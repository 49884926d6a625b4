package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// ImportedRowsTotal counts spreadsheet rows by outcome (stored, skipped).
	ImportedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tisops",
		Subsystem: "insights",
		Name:      "imported_rows_total",
		Help:      "Ticket export rows processed by the importer, labeled by result.",
	}, []string{"result"})

	// UnmappedValuesTotal counts normalized records by unmapped field.
	UnmappedValuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tisops",
		Subsystem: "insights",
		Name:      "unmapped_values_total",
		Help:      "Normalized records whose field had no active registry match, labeled by field.",
	}, []string{"field"})

	// AggregationDurationSeconds is wall time per report builder.
	AggregationDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tisops",
		Subsystem: "insights",
		Name:      "aggregation_duration_seconds",
		Help:      "Time spent building one report from an in-memory snapshot.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"report"})

	// ReportRequestsTotal counts report requests by report and outcome.
	ReportRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tisops",
		Subsystem: "insights",
		Name:      "report_requests_total",
		Help:      "Report requests served, labeled by report and result.",
	}, []string{"report", "result"})
)

// Init registers collectors once. Safe to call from multiple entry points.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			ImportedRowsTotal,
			UnmappedValuesTotal,
			AggregationDurationSeconds,
			ReportRequestsTotal,
		)
	})
}

func ObserveAggregation(report string, d time.Duration) {
	AggregationDurationSeconds.WithLabelValues(report).Observe(d.Seconds())
}
