package txseq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTxsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stakepool_txs_submitted_total",
		Help: "Transactions submitted to the ledger",
	})
	metricTxsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stakepool_txs_confirmed_total",
		Help: "Transactions confirmed by the ledger",
	})
	metricTxsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stakepool_txs_failed_total",
		Help: "Transactions rejected or never confirmed",
	})
)
