// Package services – metrics
//
// Prometheus instrumentation for engine operations. Label cardinality is
// bounded: "op" is one of the fixed operation names used by BlogService and
// "outcome" is the output of Kind.
package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// opsTotal counts engine calls by operation and outcome.
	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_operations_total",
			Help: "Total number of blog engine operations.",
		},
		[]string{"op", "outcome"},
	)

	// opLatency records operation duration in seconds. Outcome is omitted
	// to keep histogram cardinality low.
	opLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blog_operation_duration_seconds",
			Help:    "Duration of blog engine operations in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// donatedTotal sums the amounts of recorded donations.
	donatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blog_donated_amount_total",
			Help: "Sum of recorded donation amounts, smallest currency unit.",
		},
	)
)

func init() {
	prometheus.MustRegister(opsTotal, opLatency, donatedTotal)
}

// recordOp observes one finished operation.
func recordOp(op string, start time.Time, err error) {
	opsTotal.WithLabelValues(op, Kind(err)).Inc()
	opLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
