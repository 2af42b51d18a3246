package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "booking_created_total",
			Help:      "Count of booking create operations by recurrence type.",
		},
		[]string{"recurring"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "booking_cancelled_total",
			Help:      "Count of booking cancellations.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "booking_conflicts_total",
			Help:      "Count of operations rejected because a room was already booked.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomly",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, bookingConflicts, httpRequests)
	})
}

func IncBookingCreated(recurring string) {
	bookingCreated.WithLabelValues(recurring).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
