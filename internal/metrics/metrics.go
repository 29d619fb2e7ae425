// Package metrics exposes Prometheus instrumentation for aggregate
// maintenance and rankings.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for aggregate mutations.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
	OutcomeExhausted = "retries_exhausted"
)

var (
	// AggregateMutationsTotal counts units of work that mutate a book's source
	// rows and refresh its aggregates, by operation and outcome.
	AggregateMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetrail_aggregate_mutations_total",
		Help: "Aggregate-maintaining mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	// AggregateRetriesTotal counts mutations re-run after a write conflict.
	AggregateRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetrail_aggregate_retries_total",
		Help: "Aggregate mutations retried after a write conflict",
	}, []string{"operation"})

	// AggregateMutationDuration measures lock wait plus transaction time.
	AggregateMutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagetrail_aggregate_mutation_duration_seconds",
		Help:    "Time spent in an aggregate mutation including lock wait and retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// AggregateDriftTotal counts books whose stored aggregates differed from
	// a full recomputation during reconciliation.
	AggregateDriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagetrail_aggregate_drift_total",
		Help: "Books whose stored aggregates were corrected by reconciliation",
	})

	// BookLocksHeld is the number of per-book locks currently held or awaited.
	BookLocksHeld = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagetrail_book_locks_active",
		Help: "Per-book locks currently held or awaited",
	})

	// RankingDuration measures ranking computations.
	RankingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pagetrail_ranking_duration_seconds",
		Help:    "Ranking computation time",
		Buckets: prometheus.DefBuckets,
	}, []string{"ranking"})

	// RankingExcludedEntriesTotal counts finished reading-list entries left
	// out of the speed ranking, by reason.
	RankingExcludedEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagetrail_ranking_excluded_entries_total",
		Help: "Finished reading-list entries excluded from the speed ranking",
	}, []string{"reason"})
)

// RecordMutation records the outcome and duration of an aggregate mutation.
func RecordMutation(operation, outcome string, d time.Duration) {
	AggregateMutationsTotal.WithLabelValues(operation, outcome).Inc()
	AggregateMutationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRetry records one conflict retry.
func RecordRetry(operation string) {
	AggregateRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordDrift records n corrected books.
func RecordDrift(n int) {
	if n > 0 {
		AggregateDriftTotal.Add(float64(n))
	}
}

// RecordRanking records how long a ranking took.
func RecordRanking(ranking string, d time.Duration) {
	RankingDuration.WithLabelValues(ranking).Observe(d.Seconds())
}

// RecordExcludedEntry records one entry left out of the speed ranking.
func RecordExcludedEntry(reason string) {
	RankingExcludedEntriesTotal.WithLabelValues(reason).Inc()
}
