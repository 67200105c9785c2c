// Package metrics exposes Prometheus counters for the recurring-task engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Advisory write kinds.
const (
	AdvisoryNextOccurrenceDate = "next_occurrence_date"
	AdvisoryParentStatus       = "parent_status"
	AdvisoryBroadcast          = "broadcast"
	AdvisorySpawn              = "spawn"
)

var (
	// OccurrencesSpawned counts inserted occurrences.
	// Labels: trigger (completion, explicit, adjust)
	OccurrencesSpawned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeplanner",
			Subsystem: "occurrence",
			Name:      "spawned_total",
			Help:      "Total number of occurrences spawned for recurring series",
		},
		[]string{"trigger"},
	)

	// DuplicatesSuppressed counts spawns skipped because the series already had an open occurrence.
	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifeplanner",
			Subsystem: "occurrence",
			Name:      "duplicates_suppressed_total",
			Help:      "Total number of spawns suppressed by the duplicate-occurrence guard",
		},
	)

	// AdvisoryWriteFailures counts failed secondary writes that did not fail the request.
	// Labels: kind (next_occurrence_date, parent_status, broadcast, spawn)
	AdvisoryWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifeplanner",
			Name:      "advisory_write_failures_total",
			Help:      "Total number of best-effort bookkeeping writes that failed",
		},
		[]string{"kind"},
	)

	// SeriesDeletedRows counts rows removed by task deletion, cascades included.
	SeriesDeletedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifeplanner",
			Subsystem: "series",
			Name:      "deleted_rows_total",
			Help:      "Total number of task rows removed by deletions and series cascades",
		},
	)

	// SeriesLocksPurged counts idle per-series locks dropped by the janitor.
	SeriesLocksPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifeplanner",
			Subsystem: "series",
			Name:      "locks_purged_total",
			Help:      "Total number of idle per-series locks purged",
		},
	)
)

// RecordAdvisoryFailure counts a failed best-effort write of the given kind.
func RecordAdvisoryFailure(kind string) {
	AdvisoryWriteFailures.WithLabelValues(kind).Inc()
}
