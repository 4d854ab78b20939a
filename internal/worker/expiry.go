// Package worker runs the pending-reservation expiry sweep.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rentadesk/internal/events"
	"rentadesk/internal/metrics"
	"rentadesk/internal/models"
)

// ExpiryStore is the slice of the database the sweep needs.
type ExpiryStore interface {
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
}

// ExpiryWorker cancels pending reservations whose hold has run out, so
// unpaid holds do not keep blocking slots forever.
type ExpiryWorker struct {
	store         ExpiryStore
	bus           *events.Bus
	pendingTTL    time.Duration
	sweepInterval time.Duration
	log           *zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewExpiryWorker(store ExpiryStore, bus *events.Bus, pendingTTL, sweepInterval time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		store:         store,
		bus:           bus,
		pendingTTL:    pendingTTL,
		sweepInterval: sweepInterval,
		log:           logger,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the sweep loop. It runs one sweep immediately so a
// restart does not delay overdue cancellations by a full interval.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info().
		Dur("pending_ttl", w.pendingTTL).
		Dur("sweep_interval", w.sweepInterval).
		Msg("expiry worker started")

	w.Sweep(ctx)

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("expiry worker stopped by context")
			return
		case <-w.stopCh:
			w.log.Info().Msg("expiry worker stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Stop stops the sweep loop.
func (w *ExpiryWorker) Stop() {
	w.mu.Lock()
	if w.running {
		w.running = false
		close(w.stopCh)
	}
	w.mu.Unlock()
}

// Sweep cancels all pending reservations created before now-TTL and
// publishes an expiry event for each freed slot.
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.pendingTTL)
	expired, err := w.store.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	metrics.AddPendingExpired(len(expired))
	for _, r := range expired {
		w.bus.Publish(events.Event{
			Type:          events.TypeReservationExpired,
			ResourceID:    r.ResourceID,
			ReservationID: r.ID,
			PublicID:      r.PublicID,
		})
	}
	w.log.Info().Int("count", len(expired)).Msg("pending reservations expired")
}
