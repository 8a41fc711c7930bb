package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the booking core.
type Metrics struct {
	OrdersTotal        *prometheus.CounterVec
	CommitConflicts    prometheus.Counter
	StorageRetries     prometheus.Counter
	PlaceOrderDuration prometheus.Histogram
}

// New registers the booking metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "orders_total",
			Help:      "Order placement attempts by outcome.",
		}, []string{"outcome"}),
		CommitConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "commit_conflicts_total",
			Help:      "Reservation commits that lost a capacity race and were retried.",
		}),
		StorageRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "storage_retries_total",
			Help:      "Transient storage failures that were retried.",
		}),
		PlaceOrderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "booking",
			Name:      "place_order_duration_seconds",
			Help:      "End-to-end PlaceOrder latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.OrdersTotal, m.CommitConflicts, m.StorageRetries, m.PlaceOrderDuration)
	return m
}
