package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talevox_runs_total",
		Help: "Total number of conversion runs by outcome",
	}, []string{"outcome"}) // outcome: "succeeded", "failed", "cancelled"

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "talevox_run_duration_seconds",
		Help:    "Duration of full conversion runs in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	// Synthesis metrics
	synthRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talevox_synth_requests_total",
		Help: "Total number of chunk synthesis requests",
	}, []string{"status"}) // status: "success", "error", "cancelled", "skipped"

	synthLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "talevox_synth_latency_seconds",
		Help:    "Per-chunk synthesis latency in seconds",
		Buckets: []float64{0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
	})

	// Merge metrics
	mergeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "talevox_merge_duration_seconds",
		Help:    "Duration of the external merge invocation in seconds",
		Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 120.0},
	})

	mergeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talevox_merge_requests_total",
		Help: "Total number of merge invocations",
	}, []string{"status"}) // status: "success", "error", "timeout"

	// Temp artifact metrics
	tempFilesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talevox_temp_files_removed_total",
		Help: "Temporary artifacts removed during cleanup",
	})

	tempFilesLeaked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talevox_temp_files_leaked_total",
		Help: "Temporary artifacts that could not be removed during cleanup",
	})
)

// RecordRun records a finished conversion run and its wall-clock duration
func RecordRun(outcome string, seconds float64) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(seconds)
}

// RecordSynth records one chunk synthesis attempt
func RecordSynth(status string, seconds float64) {
	synthRequests.WithLabelValues(status).Inc()
	if seconds > 0 {
		synthLatency.Observe(seconds)
	}
}

// RecordMerge records one merge invocation
func RecordMerge(status string, seconds float64) {
	mergeRequests.WithLabelValues(status).Inc()
	mergeDuration.Observe(seconds)
}

// RecordCleanup records the result of a temp artifact cleanup pass
func RecordCleanup(removed, leaked int) {
	tempFilesRemoved.Add(float64(removed))
	tempFilesLeaked.Add(float64(leaked))
}
