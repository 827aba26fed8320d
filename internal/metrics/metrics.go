// Package metrics defines Prometheus metrics for the hub API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChargesTotal counts charge attempts by outcome (charged, declined, error)
	ChargesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_charges_total",
			Help: "Total number of credit charge attempts",
		},
		[]string{"model", "outcome"},
	)

	// CreditsCharged tracks the credits debited per charge
	CreditsCharged = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_credits_charged",
			Help:    "Credits debited per accepted charge",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		},
		[]string{"model"},
	)

	// RefundsTotal counts compensating credits issued for failed dispatches
	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_refunds_total",
			Help: "Total number of charge refunds",
		},
		[]string{"model"},
	)

	// PurchasesTotal counts credit purchase confirmations by outcome
	// (applied, replayed, unknown)
	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_purchases_total",
			Help: "Total number of credit purchase confirmations",
		},
		[]string{"outcome"},
	)

	// CreditsPurchased tracks credits granted per applied purchase
	CreditsPurchased = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_credits_purchased",
			Help:    "Credits granted per applied purchase",
			Buckets: []float64{1e4, 1e5, 1e6, 1e7, 1e8},
		},
	)

	// InferenceRequestsTotal counts proxied inference requests by outcome
	// (ok, upstream_error, timeout)
	InferenceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_inference_requests_total",
			Help: "Total number of proxied inference requests",
		},
		[]string{"model", "outcome"},
	)

	// InferenceDuration tracks end-to-end dispatch time per model
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_inference_duration_seconds",
			Help:    "Inference dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	// SessionsSwept counts expired sessions removed by the sweeper
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_sessions_swept_total",
			Help: "Total number of expired sessions removed",
		},
	)
)
