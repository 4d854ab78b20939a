package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentadesk",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created by resource category.",
		},
		[]string{"category"},
	)

	reservationDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentadesk",
			Name:      "reservation_decision_total",
			Help:      "Count of staff decisions over reservations.",
		},
		[]string{"decision"},
	)

	validationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentadesk",
			Name:      "validation_rejected_total",
			Help:      "Count of booking candidates rejected by validation kind.",
		},
		[]string{"kind"},
	)

	slotConflictOnWrite = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rentadesk",
			Name:      "slot_conflict_on_write_total",
			Help:      "Count of inserts rejected by the store-side overlap check.",
		},
	)

	pendingExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rentadesk",
			Name:      "pending_expired_total",
			Help:      "Count of pending reservations auto-canceled by the expiry worker.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentadesk",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated,
			reservationDecision,
			validationRejected,
			slotConflictOnWrite,
			pendingExpired,
			httpRequests,
		)
	})
}

func IncReservationCreated(category string) {
	reservationCreated.WithLabelValues(category).Inc()
}

func IncReservationDecision(decision string) {
	reservationDecision.WithLabelValues(decision).Inc()
}

func IncValidationRejected(kind string) {
	validationRejected.WithLabelValues(kind).Inc()
}

func IncSlotConflictOnWrite() {
	slotConflictOnWrite.Inc()
}

func AddPendingExpired(n int) {
	pendingExpired.Add(float64(n))
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
