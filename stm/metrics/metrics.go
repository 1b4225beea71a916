package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TxnCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinystm",
			Subsystem: "txn",
			Name:      "attempts_total",
			Help:      "Counter of transaction attempts by result.",
		}, []string{"result"})

	AbortCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinystm",
			Subsystem: "txn",
			Name:      "aborts_total",
			Help:      "Counter of transaction aborts by cause.",
		}, []string{"cause"})
)

func init() {
	prometheus.MustRegister(TxnCounter)
	prometheus.MustRegister(AbortCounter)
}
