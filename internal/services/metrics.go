// Package services – ledger metrics
//
// Prometheus collectors for the credit pipeline. Label cardinality is kept
// bounded: "source" is a closed set of action labels and "result" is one of
// credited, duplicate, limited, or error.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// creditOps counts AddPoints outcomes by source and result.
	creditOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_credit_operations_total",
			Help: "Total number of XP credit attempts by source and outcome.",
		},
		[]string{"source", "result"},
	)

	// pointsMinted sums the XP actually credited, by source.
	pointsMinted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_points_minted_total",
			Help: "Total XP credited to balances, by source.",
		},
		[]string{"source"},
	)

	// reversals counts explicit reversals.
	reversals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_reversals_total",
			Help: "Total number of reversed credits.",
		},
	)

	// unlocks counts achievement unlocks by rarity.
	unlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_achievement_unlocks_total",
			Help: "Total number of achievement unlocks by rarity.",
		},
		[]string{"rarity"},
	)
)

func init() {
	prometheus.MustRegister(creditOps, pointsMinted, reversals, unlocks)
}
