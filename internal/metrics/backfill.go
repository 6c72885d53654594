package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backfill pipeline Prometheus metrics.
var (
	BackfillRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hybridsearch",
			Name:      "backfill_rows_total",
			Help:      "Rows handled by the backfill pipeline",
		},
		[]string{"status"}, // "processed" / "skipped"
	)

	BackfillBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hybridsearch",
			Name:      "backfill_batch_duration_seconds",
			Help:      "Duration of one fetch-encode-upsert iteration",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"}, // "encode" / "upsert" / "total"
	)
)

var backfillMetricsRegistered bool

// RegisterBackfillMetrics registers backfill metrics. Must be called once from main.
func RegisterBackfillMetrics() {
	if backfillMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackfillRowsTotal)
	prometheus.MustRegister(BackfillBatchDuration)
	backfillMetricsRegistered = true
}
