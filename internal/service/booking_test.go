package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rentadesk/internal/availability"
	"rentadesk/internal/database"
	"rentadesk/internal/events"
	"rentadesk/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Resource), args.Error(1)
}
func (m *mockStore) ListActiveResources(ctx context.Context, category string) ([]models.Resource, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]models.Resource), args.Error(1)
}
func (m *mockStore) CreateReservationWithCheck(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockStore) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockStore) GetReservationByPublicID(ctx context.Context, publicID string) (*models.Reservation, error) {
	args := m.Called(ctx, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}
func (m *mockStore) ListReservations(ctx context.Context, resourceID int64, status string) ([]models.Reservation, error) {
	args := m.Called(ctx, resourceID, status)
	return args.Get(0).([]models.Reservation), args.Error(1)
}
func (m *mockStore) UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, status string) error {
	return m.Called(ctx, id, version, status).Error(0)
}
func (m *mockStore) GetBlockingIntervals(ctx context.Context, resourceID int64) ([]models.Interval, error) {
	args := m.Called(ctx, resourceID)
	return args.Get(0).([]models.Interval), args.Error(1)
}
func (m *mockStore) CreatePaymentProof(ctx context.Context, p *models.PaymentProof) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockStore) GetPaymentProofs(ctx context.Context, reservationID int64) ([]models.PaymentProof, error) {
	args := m.Called(ctx, reservationID)
	return args.Get(0).([]models.PaymentProof), args.Error(1)
}
func (m *mockStore) MarkProofVerified(ctx context.Context, proofID int64, verifiedBy string) error {
	return m.Called(ctx, proofID, verifiedBy).Error(0)
}
func (m *mockStore) AppendAudit(ctx context.Context, e *database.AuditEntry) error {
	return m.Called(ctx, e).Error(0)
}

type mockIntervals struct {
	mock.Mock
}

func (m *mockIntervals) Get(ctx context.Context, resourceID int64) ([]models.Interval, error) {
	args := m.Called(ctx, resourceID)
	return args.Get(0).([]models.Interval), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func newTestService(store *mockStore, intervals *mockIntervals, notifier *mockNotifier) (*BookingService, *events.Bus) {
	logger := zerolog.New(io.Discard)
	bus := events.NewBus()
	svc := NewBookingService(store, intervals, bus, notifier, 1, 1, &logger)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, bus
}

func TestCreateReservation(t *testing.T) {
	ctx := context.Background()
	room := &models.Resource{ID: 1, Name: "Room A", Category: models.CategoryRoom, Granularity: models.GranularityDay, IsActive: true}

	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	t.Run("valid candidate becomes pending", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		notifier := new(mockNotifier)
		svc, bus := newTestService(store, intervals, notifier)

		var published []events.Event
		bus.SubscribeAll(func(e events.Event) { published = append(published, e) })

		store.On("GetResource", ctx, int64(1)).Return(room, nil).Once()
		intervals.On("Get", ctx, int64(1)).Return([]models.Interval{}, nil).Once()
		store.On("CreateReservationWithCheck", ctx, mock.Anything).Return(nil).Once()
		notifier.On("Notify", ctx, mock.Anything).Return(nil).Once()

		got, err := svc.CreateReservation(ctx, CreateReservationRequest{
			ResourceID:   1,
			CustomerName: "Ada",
			Start:        &start,
			End:          &end,
		})
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.NotEmpty(t, got.PublicID)
		assert.Len(t, published, 1)
		assert.Equal(t, events.TypeReservationCreated, published[0].Type)
		store.AssertExpectations(t)
	})

	t.Run("engine conflict never reaches the store", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		svc, _ := newTestService(store, intervals, nil)

		store.On("GetResource", ctx, int64(1)).Return(room, nil).Once()
		intervals.On("Get", ctx, int64(1)).Return([]models.Interval{{Start: start, End: end}}, nil).Once()

		_, err := svc.CreateReservation(ctx, CreateReservationRequest{
			ResourceID: 1, CustomerName: "Ada", Start: &start, End: &end,
		})
		verr, ok := availability.AsValidation(err)
		assert.True(t, ok)
		assert.Equal(t, availability.KindSlotConflict, verr.Kind)
		store.AssertNotCalled(t, "CreateReservationWithCheck", mock.Anything, mock.Anything)
	})

	t.Run("lost insert race maps to slot conflict", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		svc, _ := newTestService(store, intervals, nil)

		store.On("GetResource", ctx, int64(1)).Return(room, nil).Once()
		intervals.On("Get", ctx, int64(1)).Return([]models.Interval{}, nil).Once()
		store.On("CreateReservationWithCheck", ctx, mock.Anything).Return(database.ErrSlotTaken).Once()

		_, err := svc.CreateReservation(ctx, CreateReservationRequest{
			ResourceID: 1, CustomerName: "Ada", Start: &start, End: &end,
		})
		verr, ok := availability.AsValidation(err)
		assert.True(t, ok)
		assert.Equal(t, availability.KindSlotConflict, verr.Kind)
	})

	t.Run("missing endpoint is incomplete selection", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		svc, _ := newTestService(store, intervals, nil)

		store.On("GetResource", ctx, int64(1)).Return(room, nil).Once()
		intervals.On("Get", ctx, int64(1)).Return([]models.Interval{}, nil).Once()

		_, err := svc.CreateReservation(ctx, CreateReservationRequest{
			ResourceID: 1, CustomerName: "Ada", Start: &start, End: nil,
		})
		verr, ok := availability.AsValidation(err)
		assert.True(t, ok)
		assert.Equal(t, availability.KindIncompleteSelection, verr.Kind)
	})

	t.Run("inactive resource is not bookable", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		svc, _ := newTestService(store, intervals, nil)

		closed := &models.Resource{ID: 2, Name: "Closed", Granularity: models.GranularityDay, IsActive: false}
		store.On("GetResource", ctx, int64(2)).Return(closed, nil).Once()

		_, err := svc.CreateReservation(ctx, CreateReservationRequest{
			ResourceID: 2, CustomerName: "Ada", Start: &start, End: &end,
		})
		assert.Error(t, err)
	})

	t.Run("cache outage falls back to the store", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		notifier := new(mockNotifier)
		svc, _ := newTestService(store, intervals, notifier)

		store.On("GetResource", ctx, int64(1)).Return(room, nil).Once()
		intervals.On("Get", ctx, int64(1)).Return([]models.Interval(nil), assert.AnError).Once()
		store.On("GetBlockingIntervals", ctx, int64(1)).Return([]models.Interval{}, nil).Once()
		store.On("CreateReservationWithCheck", ctx, mock.Anything).Return(nil).Once()
		notifier.On("Notify", ctx, mock.Anything).Return(nil).Once()

		_, err := svc.CreateReservation(ctx, CreateReservationRequest{
			ResourceID: 1, CustomerName: "Ada", Start: &start, End: &end,
		})
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	intervals := new(mockIntervals)
	svc, bus := newTestService(store, intervals, nil)

	var published []events.Event
	bus.SubscribeAll(func(e events.Event) { published = append(published, e) })

	verifiedAt := time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)
	confirmed := &models.Reservation{ID: 10, PublicID: "pub-10", ResourceID: 1, Status: models.StatusConfirmed}
	store.On("UpdateReservationStatusWithVersion", ctx, int64(10), int64(1), models.StatusConfirmed).Return(nil).Once()
	store.On("GetReservation", ctx, int64(10)).Return(confirmed, nil).Once()
	store.On("AppendAudit", ctx, mock.Anything).Return(nil).Once()
	store.On("GetPaymentProofs", ctx, int64(10)).Return([]models.PaymentProof{
		{ID: 100, ReservationID: 10},
		{ID: 99, ReservationID: 10, VerifiedBy: "other@example.com", VerifiedAt: &verifiedAt},
	}, nil).Once()
	// Only the unverified proof gets stamped.
	store.On("MarkProofVerified", ctx, int64(100), "staff@example.com").Return(nil).Once()

	err := svc.VerifyPayment(ctx, 10, 1, "staff@example.com")
	assert.NoError(t, err)
	assert.Len(t, published, 1)
	assert.Equal(t, events.TypeReservationConfirmed, published[0].Type)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkProofVerified", ctx, int64(99), mock.Anything)
}

func TestRejectReservation(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	intervals := new(mockIntervals)
	svc, _ := newTestService(store, intervals, nil)

	rejected := &models.Reservation{ID: 11, PublicID: "pub-11", ResourceID: 1, Status: models.StatusRejected}
	store.On("UpdateReservationStatusWithVersion", ctx, int64(11), int64(2), models.StatusRejected).Return(nil).Once()
	store.On("GetReservation", ctx, int64(11)).Return(rejected, nil).Once()
	store.On("AppendAudit", ctx, mock.Anything).Return(nil).Once()

	err := svc.RejectReservation(ctx, 11, 2, "staff@example.com")
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestCancelReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("pending reservation is canceled", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		svc, _ := newTestService(store, intervals, nil)

		pending := &models.Reservation{ID: 12, PublicID: "pub-12", ResourceID: 1, Status: models.StatusPending, Version: 1}
		store.On("GetReservationByPublicID", ctx, "pub-12").Return(pending, nil).Once()
		store.On("UpdateReservationStatusWithVersion", ctx, int64(12), int64(1), models.StatusCanceled).Return(nil).Once()

		assert.NoError(t, svc.CancelReservation(ctx, "pub-12"))
		store.AssertExpectations(t)
	})

	t.Run("cancel is idempotent on released reservations", func(t *testing.T) {
		store := new(mockStore)
		intervals := new(mockIntervals)
		svc, _ := newTestService(store, intervals, nil)

		done := &models.Reservation{ID: 13, PublicID: "pub-13", Status: models.StatusRejected, Version: 3}
		store.On("GetReservationByPublicID", ctx, "pub-13").Return(done, nil).Once()

		assert.NoError(t, svc.CancelReservation(ctx, "pub-13"))
		store.AssertNotCalled(t, "UpdateReservationStatusWithVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSuggestSlot(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	intervals := new(mockIntervals)
	svc, _ := newTestService(store, intervals, nil)

	room := &models.Resource{ID: 1, Granularity: models.GranularityDay, IsActive: true}
	store.On("GetResource", ctx, int64(1)).Return(room, nil).Once()
	intervals.On("Get", ctx, int64(1)).Return([]models.Interval{}, nil).Once()

	slot, ok, err := svc.SuggestSlot(ctx, 1)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), slot.Start)
}

func TestSuggestSlot_ConfiguredDurations(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	intervals := new(mockIntervals)
	logger := zerolog.New(io.Discard)
	svc := NewBookingService(store, intervals, events.NewBus(), nil, 3, 2, &logger)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	room := &models.Resource{ID: 1, Granularity: models.GranularityDay, IsActive: true}
	store.On("GetResource", ctx, int64(1)).Return(room, nil).Once()
	intervals.On("Get", ctx, int64(1)).Return([]models.Interval{}, nil).Once()

	slot, ok, err := svc.SuggestSlot(ctx, 1)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 72*time.Hour, slot.Duration(), "day resource should get the configured three nights")

	court := &models.Resource{ID: 2, Granularity: models.GranularityHour, IsActive: true}
	store.On("GetResource", ctx, int64(2)).Return(court, nil).Once()
	intervals.On("Get", ctx, int64(2)).Return([]models.Interval{}, nil).Once()

	slot, ok, err = svc.SuggestSlot(ctx, 2)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Hour, slot.Duration(), "hour resource should get the configured two hours")
}
