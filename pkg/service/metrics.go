package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// commitsTotal counts commits.
	// Labels: outcome (applied, partial, failed)
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hed",
		Subsystem: "editor",
		Name:      "commits_total",
		Help:      "Commits by outcome",
	}, []string{"outcome"})

	// commitDuration measures submit plus reload.
	commitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hed",
		Subsystem: "editor",
		Name:      "commit_duration_seconds",
		Help:      "Commit latency in seconds, including branch reloads",
		Buckets:   prometheus.DefBuckets,
	})

	// branchLoads counts branch loads.
	// Labels: result (merged, stale, error)
	branchLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hed",
		Subsystem: "editor",
		Name:      "branch_loads_total",
		Help:      "Branch loads by result",
	}, []string{"result"})

	// pendingChanges is the current ledger size.
	pendingChanges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hed",
		Subsystem: "editor",
		Name:      "pending_changes",
		Help:      "Uncommitted changes including unsaved entities",
	})
)
