// Package metrics exposes checkout counters on the default Prometheus
// registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scanpay",
		Name:      "checkout_outcomes_total",
		Help:      "Checkout attempts by payment mode and final result.",
	}, []string{"mode", "result"})

	commitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scanpay",
		Name:      "order_commit_duration_seconds",
		Help:      "Latency of the atomic order commit.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})
)

// Outcome records one finished attempt. result is success, cancelled or a
// failure reason.
func Outcome(mode, result string) {
	checkoutOutcomes.WithLabelValues(mode, result).Inc()
}

// ObserveCommit records how long a commit call took.
func ObserveCommit(mode string, d time.Duration) {
	commitDuration.WithLabelValues(mode).Observe(d.Seconds())
}
