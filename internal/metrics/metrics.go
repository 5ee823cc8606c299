package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfeature_runs_total",
		Help: "Pipeline runs by outcome.",
	}, []string{"status"})

	rowsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripfeature_rows_in_total",
		Help: "Trip records read across all runs.",
	})

	rowsOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripfeature_rows_out_total",
		Help: "Annotated rows written across all runs.",
	})

	groups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripfeature_groups_total",
		Help: "OD groups aggregated across all runs.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripfeature_run_duration_seconds",
		Help:    "Wall time of one pipeline run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// ObserveRun records the instruments for one completed run.
func ObserveRun(rowsInCount, rowsOutCount, groupCount int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(d.Seconds())
	if err != nil {
		return
	}
	rowsIn.Add(float64(rowsInCount))
	rowsOut.Add(float64(rowsOutCount))
	groups.Add(float64(groupCount))
}
