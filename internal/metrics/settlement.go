// Package metrics exposes Prometheus instruments for the money path.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	settleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settle calls by game and result",
		},
		[]string{"game", "result"},
	)

	settleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_ms",
			Help:    "Settle duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"game"},
	)

	wageredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagered_amount_total",
			Help: "Sum of settled stakes",
		},
		[]string{"game"},
	)

	paidOutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_amount_total",
			Help: "Sum of settled payouts",
		},
		[]string{"game"},
	)

	fundsTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funds_request_transitions_total",
			Help: "Funds request status changes by kind and resulting status",
		},
		[]string{"kind", "status"},
	)

	busyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_busy_total",
		Help: "Operations refused because the account lock could not be taken in time",
	})

	eventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_publish_failures_total",
		Help: "Change notifications dropped after all retries",
	})

	subscribersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_subscribers_dropped_total",
		Help: "Subscribers disconnected because their buffer was full",
	})
)

// RecordSettle records one Settle call. result is "won", "lost" or an error
// class such as "insufficient_funds".
func RecordSettle(game, result string, started time.Time) {
	g := strings.ToLower(game)
	settleTotal.WithLabelValues(g, result).Inc()
	settleDuration.WithLabelValues(g).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordVolume adds a settled round's stake and payout.
func RecordVolume(game string, bet, payout decimal.Decimal) {
	g := strings.ToLower(game)
	wageredTotal.WithLabelValues(g).Add(bet.InexactFloat64())
	paidOutTotal.WithLabelValues(g).Add(payout.InexactFloat64())
}

func RecordFundsTransition(kind, status string) {
	fundsTransitions.WithLabelValues(kind, status).Inc()
}

func RecordBusy() { busyTotal.Inc() }

func RecordPublishFailure() { eventPublishFailures.Inc() }

func RecordSubscriberDropped() { subscribersDropped.Inc() }
