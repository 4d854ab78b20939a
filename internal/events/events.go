package events

import (
	"sync"
	"time"
)

// Reservation change-feed event types.
const (
	TypeReservationCreated   = "reservation.created"
	TypeReservationConfirmed = "reservation.confirmed"
	TypeReservationRejected  = "reservation.rejected"
	TypeReservationCanceled  = "reservation.canceled"
	TypeReservationExpired   = "reservation.expired"
	TypeProofUploaded        = "payment_proof.uploaded"
)

// Event is a reservation change notification. ResourceID lets subscribers
// invalidate per-resource snapshots without decoding anything.
type Event struct {
	Type          string
	ResourceID    int64
	ReservationID int64
	PublicID      string
	CreatedAt     time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub over reservation changes. It backs the
// "subscribe to resource changes" contract used by the snapshot cache and
// staff notifications.
type Bus struct {
	subscribers map[string][]Handler
	anyHandlers []Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anyHandlers = append(b.anyHandlers, handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.anyHandlers...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}
