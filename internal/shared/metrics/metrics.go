package metrics

import (
	"sync"
	"sync/atomic"
)

var (
	runsStarted   atomic.Int64
	runsCompleted atomic.Int64
	runsFailed    atomic.Int64

	jobsReceived             atomic.Int64
	jobsCompleted            atomic.Int64
	jobsFailed               atomic.Int64
	jobsDeletedUnrecoverable atomic.Int64

	durationMu      sync.Mutex
	durationCount   int64
	durationTotalMs float64
)

// IncRunStarted records a pipeline run entering the Parsing stage.
func IncRunStarted() { runsStarted.Add(1) }

// IncRunCompleted records a pipeline run reaching Ready.
func IncRunCompleted() { runsCompleted.Add(1) }

// IncRunFailed records a pipeline run ending in Failed.
func IncRunFailed() { runsFailed.Add(1) }

// IncJobReceived records a queue message picked up by the worker.
func IncJobReceived() { jobsReceived.Add(1) }

// IncJobCompleted records a queue message fully processed and deleted.
func IncJobCompleted() { jobsCompleted.Add(1) }

// IncJobFailed records a queue message whose processing failed.
func IncJobFailed() { jobsFailed.Add(1) }

// IncJobDeletedUnrecoverable records a malformed message dropped without processing.
func IncJobDeletedUnrecoverable() { jobsDeletedUnrecoverable.Add(1) }

// ObserveRunDurationMs records the wall-clock duration of one pipeline run.
func ObserveRunDurationMs(ms float64) {
	durationMu.Lock()
	durationCount++
	durationTotalMs += ms
	durationMu.Unlock()
}

// Snapshot returns current counter values for the health endpoint.
func Snapshot() map[string]any {
	durationMu.Lock()
	count := durationCount
	total := durationTotalMs
	durationMu.Unlock()

	avg := 0.0
	if count > 0 {
		avg = total / float64(count)
	}
	return map[string]any{
		"runs_started":               runsStarted.Load(),
		"runs_completed":             runsCompleted.Load(),
		"runs_failed":                runsFailed.Load(),
		"jobs_received":              jobsReceived.Load(),
		"jobs_completed":             jobsCompleted.Load(),
		"jobs_failed":                jobsFailed.Load(),
		"jobs_deleted_unrecoverable": jobsDeletedUnrecoverable.Load(),
		"run_duration_avg_ms":        avg,
	}
}
