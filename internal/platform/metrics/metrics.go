// Package metrics exposes Prometheus collectors for the credit ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GrantsTotal counts grant entries written, labelled by scene.
	GrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "grants_total",
		Help:      "Number of credit grants written to the ledger.",
	}, []string{"scene"})

	// GrantedCreditsTotal counts credits added to the ledger.
	GrantedCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "granted_credits_total",
		Help:      "Total credits granted.",
	})

	// ConsumptionsTotal counts successful consumptions.
	ConsumptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "consumptions_total",
		Help:      "Number of successful credit consumptions.",
	})

	// ConsumedCreditsTotal counts credits deducted from the ledger.
	ConsumedCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "consumed_credits_total",
		Help:      "Total credits consumed.",
	})

	// ConsumeFailuresTotal counts failed consumptions by reason:
	// insufficient_credits, too_many_batches, store_error.
	ConsumeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "consume_failures_total",
		Help:      "Number of failed credit consumptions by reason.",
	}, []string{"reason"})

	// ConsumptionBatches observes how many grant pages a consumption
	// scanned; a drift toward the cap signals ledger fragmentation.
	ConsumptionBatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "credit_ledger",
		Name:      "consumption_batches",
		Help:      "Grant pages scanned per consumption.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})

	// RevokedCreditsTotal counts remaining credits revoked on refunds.
	RevokedCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "revoked_credits_total",
		Help:      "Total remaining credits revoked.",
	})

	// ExpiredGrantsTotal counts grants flipped to expired by the sweeper.
	ExpiredGrantsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_ledger",
		Name:      "expired_grants_total",
		Help:      "Number of grants marked expired by the sweeper.",
	})
)
