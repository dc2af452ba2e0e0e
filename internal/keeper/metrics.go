package keeper

import "github.com/prometheus/client_golang/prometheus"

var (
	metricTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lrc_keeper_ticks_total",
		Help: "Completed keeper ticks.",
	})
	metricTickErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lrc_keeper_tick_errors_total",
		Help: "Keeper ticks that ended with an error.",
	})
	metricRoundsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lrc_keeper_rounds_started_total",
		Help: "Rounds opened by this keeper.",
	})
	metricRoundsSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lrc_keeper_rounds_settled_total",
		Help: "Rounds settled by this keeper.",
	})
	metricPayoutsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lrc_keeper_payouts_processed_total",
		Help: "Individual payout instructions confirmed on chain.",
	})
	metricPayoutBatchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lrc_keeper_payout_batch_failures_total",
		Help: "Payout batches that failed and fell back to per-bet submission.",
	})
	metricRoundCounter = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lrc_keeper_round_counter",
		Help: "Last observed on-chain round counter.",
	})
)

func init() {
	prometheus.MustRegister(
		metricTicks,
		metricTickErrors,
		metricRoundsStarted,
		metricRoundsSettled,
		metricPayoutsProcessed,
		metricPayoutBatchFailures,
		metricRoundCounter,
	)
}
