package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "modamart"

var (
	CheckoutPaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_payments_total",
			Help:      "Total checkout payment attempts.",
		},
		[]string{"method", "result"}, // method: wallet/gateway, result: success/error/duplicate
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Total seller settlement attempts.",
		},
		[]string{"result"},
	)

	LedgerLockRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_lock_retries_total",
			Help:      "Total ledger retries caused by row lock contention.",
		},
	)

	SubOrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suborder_transitions_total",
			Help:      "Total sub-order fulfillment transitions.",
		},
		[]string{"to"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Result 统一 result 标签取值
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
