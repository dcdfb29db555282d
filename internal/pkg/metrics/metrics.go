package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_purchases_total",
		Help: "Shop purchases by outcome",
	}, []string{"status"})

	BidsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_bids_total",
		Help: "Auction bids by outcome",
	}, []string{"status"})

	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_settlements_total",
		Help: "Auction lots settled by outcome",
	}, []string{"outcome"})

	LedgerCredits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_ledger_credits_total",
		Help: "Claims ledger credits by kind",
	}, []string{"kind"})

	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradepost_claims_total",
		Help: "Non-empty claims delivered",
	})

	ShopperSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_shopper_steps_total",
		Help: "Shopper route steps by outcome",
	}, []string{"status"})

	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradepost_persistence_failures_total",
		Help: "Failed writes to the backing store",
	}, []string{"store"})

	ActiveAuctions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tradepost_active_auctions",
		Help: "Auctions awaiting settlement",
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradepost_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
