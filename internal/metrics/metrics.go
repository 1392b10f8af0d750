package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crash_rounds_total",
			Help: "Rounds that reached the crashed phase",
		},
	)

	CrashMultiplier = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crash_multiplier",
			Help:    "Realized crash multipliers",
			Buckets: []float64{1, 1.01, 1.25, 1.5, 2, 3, 5, 10, 25, 100, 1000},
		},
	)

	BetActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crash_bet_actions_total",
			Help: "Participant actions by kind and outcome",
		},
		[]string{"action", "outcome"},
	)

	Wagered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crash_wagered_total",
			Help: "Sum of settled wager amounts",
		},
	)

	PaidOut = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crash_paid_out_total",
			Help: "Sum of cashout payouts after house edge",
		},
	)

	ActiveBets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crash_active_bets",
			Help: "Active bets in the current round",
		},
	)

	LedgerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crash_ledger_failures_total",
			Help: "Currency ledger calls that failed for reasons other than insufficient funds",
		},
		[]string{"op"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route"},
	)
)

var once sync.Once

// Init registers every collector with the default registry. Safe to call
// more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RoundsTotal,
			CrashMultiplier,
			BetActions,
			Wagered,
			PaidOut,
			ActiveBets,
			LedgerFailures,
			HTTPRequests,
		)
	})
}
