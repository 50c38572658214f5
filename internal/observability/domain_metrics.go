package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckcsv_imports_total",
			Help: "Total number of table imports by source and status.",
		},
		[]string{"source", "status"},
	)
	importDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckcsv_import_duration_seconds",
			Help:    "Table import latency including scratch file transfer.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"source"},
	)
	tableRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckcsv_table_rows",
			Help: "Row count of the loaded table. Drops to 0 when a load fails and the table is gone.",
		},
	)
	presignsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckcsv_presigned_uploads_total",
			Help: "Total number of presigned upload URLs issued by status.",
		},
		[]string{"status"},
	)
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckcsv_queries_total",
			Help: "Total number of user queries by mode and status.",
		},
		[]string{"mode", "status"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckcsv_query_duration_seconds",
			Help:    "User query latency by mode.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(
		importsTotal,
		importDurationSeconds,
		tableRows,
		presignsTotal,
		queriesTotal,
		queryDurationSeconds,
	)
}

func ObserveImport(source string, rowCount int64, elapsed time.Duration, err error) {
	importsTotal.WithLabelValues(source, statusLabel(err)).Inc()
	importDurationSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
	if err == nil {
		tableRows.Set(float64(rowCount))
	}
}

// ObserveTableDropped records that a failed load left no table behind.
func ObserveTableDropped() {
	tableRows.Set(0)
}

func ObservePresign(err error) {
	presignsTotal.WithLabelValues(statusLabel(err)).Inc()
}

func ObserveQuery(mode string, elapsed time.Duration, err error) {
	queriesTotal.WithLabelValues(mode, statusLabel(err)).Inc()
	queryDurationSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
