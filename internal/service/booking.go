// Package service coordinates the booking workflow: candidate
// validation against the availability engine, the serialized store
// insert, status transitions, and the follow-up side effects
// (events, audit, staff notifications).
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rentadesk/internal/availability"
	"rentadesk/internal/database"
	"rentadesk/internal/events"
	"rentadesk/internal/metrics"
	"rentadesk/internal/models"
)

// Store is the persistence surface the booking workflow needs.
type Store interface {
	GetResource(ctx context.Context, id int64) (*models.Resource, error)
	ListActiveResources(ctx context.Context, category string) ([]models.Resource, error)
	CreateReservationWithCheck(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationByPublicID(ctx context.Context, publicID string) (*models.Reservation, error)
	ListReservations(ctx context.Context, resourceID int64, status string) ([]models.Reservation, error)
	UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, status string) error
	GetBlockingIntervals(ctx context.Context, resourceID int64) ([]models.Interval, error)
	CreatePaymentProof(ctx context.Context, p *models.PaymentProof) error
	GetPaymentProofs(ctx context.Context, reservationID int64) ([]models.PaymentProof, error)
	MarkProofVerified(ctx context.Context, proofID int64, verifiedBy string) error
	AppendAudit(ctx context.Context, e *database.AuditEntry) error
}

// IntervalProvider serves the blocking intervals used for client-facing
// availability views. Usually the snapshot cache; reads may be slightly
// stale, so the store insert stays the authority.
type IntervalProvider interface {
	Get(ctx context.Context, resourceID int64) ([]models.Interval, error)
}

// Notifier pushes a staff-facing message. Failures are logged, never
// surfaced to the customer.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// CreateReservationRequest carries a booking candidate. Start and End
// are pointers: a nil endpoint means the customer has not finished the
// selection yet.
type CreateReservationRequest struct {
	ResourceID    int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Comment       string
	Start         *time.Time
	End           *time.Time
}

type BookingService struct {
	store         Store
	intervals     IntervalProvider
	bus           *events.Bus
	notifier      Notifier
	defaultNights int
	defaultHours  int
	log           *zerolog.Logger
	now           func() time.Time
}

// NewBookingService wires the booking workflow. defaultNights and
// defaultHours set how long a suggested pre-filled slot is for per-day
// and per-hour resources; values below one fall back to one unit.
func NewBookingService(store Store, intervals IntervalProvider, bus *events.Bus, notifier Notifier, defaultNights, defaultHours int, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		store:         store,
		intervals:     intervals,
		bus:           bus,
		notifier:      notifier,
		defaultNights: defaultNights,
		defaultHours:  defaultHours,
		log:           logger,
		now:           time.Now,
	}
}

// CreateReservation validates a candidate and inserts it as pending.
// Validation failures come back as *availability.ValidationError; a
// lost race at insert time surfaces as a slot_conflict of the same
// shape, so callers render both identically.
func (s *BookingService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*models.Reservation, error) {
	resource, err := s.store.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("load resource %d: %w", req.ResourceID, err)
	}
	if !resource.IsActive {
		return nil, &availability.ValidationError{
			Kind:    availability.KindSlotConflict,
			Message: "this unit is not open for booking",
		}
	}

	existing, err := s.intervals.Get(ctx, req.ResourceID)
	if err != nil {
		// Degrade to the authoritative store rather than failing the
		// request on a cache outage.
		existing, err = s.store.GetBlockingIntervals(ctx, req.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("load intervals for resource %d: %w", req.ResourceID, err)
		}
	}

	if err := availability.ValidateCandidate(req.Start, req.End, existing, resource.Granularity, s.now()); err != nil {
		if verr, ok := availability.AsValidation(err); ok {
			metrics.IncValidationRejected(string(verr.Kind))
		}
		return nil, err
	}

	interval, err := models.NewInterval(*req.Start, *req.End)
	if err != nil {
		return nil, &availability.ValidationError{
			Kind:    availability.KindInvalidOrder,
			Message: "end must be after start",
		}
	}

	reservation := &models.Reservation{
		PublicID:      uuid.NewString(),
		ResourceID:    resource.ID,
		ResourceName:  resource.Name,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Comment:       req.Comment,
		Interval:      interval,
		Status:        models.StatusPending,
	}

	if err := s.store.CreateReservationWithCheck(ctx, reservation); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncSlotConflictOnWrite()
			return nil, &availability.ValidationError{
				Kind:    availability.KindSlotConflict,
				Message: "the selected slot was just taken, please pick another",
			}
		}
		return nil, err
	}

	metrics.IncReservationCreated(resource.Category)
	s.publish(events.TypeReservationCreated, reservation)
	s.notify(ctx, fmt.Sprintf("New reservation %s: %s, %s → %s",
		reservation.PublicID[:8], resource.Name,
		reservation.Interval.Start.Format("2006-01-02 15:04"),
		reservation.Interval.End.Format("2006-01-02 15:04")))

	s.log.Info().
		Str("public_id", reservation.PublicID).
		Int64("resource_id", resource.ID).
		Msg("reservation created")

	return reservation, nil
}

// AttachPaymentProof stores an uploaded proof reference for a pending
// reservation and pings staff to review it.
func (s *BookingService) AttachPaymentProof(ctx context.Context, publicID, objectName, contentType string) (*models.PaymentProof, error) {
	reservation, err := s.store.GetReservationByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if reservation.Status != models.StatusPending {
		return nil, fmt.Errorf("reservation %s is %s, proof not accepted", publicID, reservation.Status)
	}

	proof := &models.PaymentProof{
		ReservationID: reservation.ID,
		ObjectName:    objectName,
		ContentType:   contentType,
	}
	if err := s.store.CreatePaymentProof(ctx, proof); err != nil {
		return nil, err
	}

	s.publish(events.TypeProofUploaded, reservation)
	s.notify(ctx, fmt.Sprintf("Payment proof uploaded for reservation %s", reservation.PublicID[:8]))
	return proof, nil
}

// VerifyPayment confirms a pending reservation. The version guard makes
// concurrent staff decisions lose cleanly instead of double-applying.
// Pending proofs on the reservation get stamped with the verifying
// staff member.
func (s *BookingService) VerifyPayment(ctx context.Context, id, version int64, actor string) error {
	if err := s.decide(ctx, id, version, actor, models.StatusConfirmed, events.TypeReservationConfirmed, "verify_payment"); err != nil {
		return err
	}
	s.markProofsVerified(ctx, id, actor)
	return nil
}

// markProofsVerified stamps the reservation's unverified proofs. The
// confirmation itself already committed, so failures here are logged
// and left for the next verification pass.
func (s *BookingService) markProofsVerified(ctx context.Context, reservationID int64, actor string) {
	proofs, err := s.store.GetPaymentProofs(ctx, reservationID)
	if err != nil {
		s.log.Warn().Err(err).Int64("reservation_id", reservationID).Msg("load payment proofs failed")
		return
	}
	for _, p := range proofs {
		if p.VerifiedAt != nil {
			continue
		}
		if err := s.store.MarkProofVerified(ctx, p.ID, actor); err != nil {
			s.log.Warn().Err(err).Int64("proof_id", p.ID).Msg("mark proof verified failed")
		}
	}
}

// ListPaymentProofs returns the uploaded proofs for a reservation.
func (s *BookingService) ListPaymentProofs(ctx context.Context, reservationID int64) ([]models.PaymentProof, error) {
	return s.store.GetPaymentProofs(ctx, reservationID)
}

// RejectReservation declines a reservation and frees its slot.
func (s *BookingService) RejectReservation(ctx context.Context, id, version int64, actor string) error {
	return s.decide(ctx, id, version, actor, models.StatusRejected, events.TypeReservationRejected, "reject")
}

// CancelReservation is the customer-facing cancel, keyed by public id.
func (s *BookingService) CancelReservation(ctx context.Context, publicID string) error {
	reservation, err := s.store.GetReservationByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if models.CategoryOf(reservation.Status) == models.CategoryNonBlocking {
		return nil // already released
	}

	if err := s.store.UpdateReservationStatusWithVersion(ctx, reservation.ID, reservation.Version, models.StatusCanceled); err != nil {
		return err
	}

	metrics.IncReservationDecision("cancel")
	reservation.Status = models.StatusCanceled
	s.publish(events.TypeReservationCanceled, reservation)
	s.log.Info().Str("public_id", publicID).Msg("reservation canceled by customer")
	return nil
}

func (s *BookingService) decide(ctx context.Context, id, version int64, actor, status, eventType, action string) error {
	if err := s.store.UpdateReservationStatusWithVersion(ctx, id, version, status); err != nil {
		return err
	}

	reservation, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}

	metrics.IncReservationDecision(action)
	s.publish(eventType, reservation)
	s.audit(ctx, actor, action, reservation)
	s.log.Info().
		Int64("reservation_id", id).
		Str("actor", actor).
		Str("status", status).
		Msg("staff decision applied")
	return nil
}

// DisabledRanges returns the picker-disabled ranges for a resource.
func (s *BookingService) DisabledRanges(ctx context.Context, resourceID int64, day time.Time) ([]models.Interval, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	existing, err := s.intervals.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	if resource.Granularity == models.GranularityHour {
		return availability.DisabledHourRanges(existing, day, s.now()), nil
	}
	return availability.DisabledDateRanges(existing, s.now()), nil
}

// SuggestSlot proposes a default pre-filled slot for the picker.
func (s *BookingService) SuggestSlot(ctx context.Context, resourceID int64) (models.Interval, bool, error) {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return models.Interval{}, false, err
	}
	existing, err := s.intervals.Get(ctx, resourceID)
	if err != nil {
		return models.Interval{}, false, err
	}
	span := s.defaultNights
	if resource.Granularity == models.GranularityHour {
		span = s.defaultHours
	}
	slot, ok := availability.SuggestSlotSpanning(existing, resource.Granularity, s.now(), span)
	return slot, ok, nil
}

func (s *BookingService) publish(eventType string, r *models.Reservation) {
	s.bus.Publish(events.Event{
		Type:          eventType,
		ResourceID:    r.ResourceID,
		ReservationID: r.ID,
		PublicID:      r.PublicID,
	})
}

func (s *BookingService) audit(ctx context.Context, actor, action string, r *models.Reservation) {
	details, _ := json.Marshal(map[string]any{"status": r.Status, "public_id": r.PublicID})
	entry := &database.AuditEntry{
		Actor:    actor,
		Action:   action,
		Entity:   "reservation",
		EntityID: r.ID,
		Details:  string(details),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).Msg("audit append failed")
	}
}

func (s *BookingService) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.log.Warn().Err(err).Msg("staff notification failed")
	}
}
