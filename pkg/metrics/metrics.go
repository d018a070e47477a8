// Package metrics defines the prometheus collectors exposed by walletcore.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileRuns counts reconciliation cron invocations per adapter.
var ReconcileRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_reconcile_runs_total",
		Help: "Total reconciliation cron runs per adapter",
	},
	[]string{"symbol"},
)

// ReconcileErrors counts failed reconciliation runs per adapter.
var ReconcileErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_reconcile_errors_total",
		Help: "Total reconciliation cron failures per adapter",
	},
	[]string{"symbol"},
)

// ReconcileDuration records how long each adapter cron run takes.
var ReconcileDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "walletcore_reconcile_duration_seconds",
		Help:    "Duration of adapter reconciliation runs",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"symbol"},
)

// Transitions counts ledger status transitions by category and new status.
var Transitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_ledger_transitions_total",
		Help: "Total ledger transaction status transitions",
	},
	[]string{"category", "status"},
)

// AdapterUp reports whether the wallet backend for a symbol responded to
// its last balance probe.
var AdapterUp = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "walletcore_adapter_up",
		Help: "1 when the coin adapter backend is responding, 0 otherwise",
	},
	[]string{"symbol"},
)

// HotWalletBalance reports the adapter-visible hot wallet balance per symbol.
var HotWalletBalance = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "walletcore_hot_wallet_balance",
		Help: "Hot wallet balance as reported by the coin adapter",
	},
	[]string{"symbol"},
)

// UserBalanceSum reports the ledger-derived sum of user balances per
// symbol. Compared against HotWalletBalance for solvency.
var UserBalanceSum = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "walletcore_user_balance_sum",
		Help: "Sum of user balances derived from the ledger",
	},
	[]string{"symbol"},
)

func init() {
	prometheus.MustRegister(ReconcileRuns, ReconcileErrors, ReconcileDuration)
	prometheus.MustRegister(Transitions, AdapterUp, HotWalletBalance, UserBalanceSum)
}
