package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"rentadesk/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestResource(t *testing.T, db *DB, g models.Granularity) *models.Resource {
	t.Helper()
	r := &models.Resource{
		Name:        "Seminar room " + uuid.NewString()[:8],
		Category:    models.CategoryRoom,
		Granularity: g,
		IsActive:    true,
	}
	if err := db.CreateResource(context.Background(), r); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	return r
}

func newReservation(resourceID int64, start, end time.Time) *models.Reservation {
	return &models.Reservation{
		PublicID:     uuid.NewString(),
		ResourceID:   resourceID,
		CustomerName: "Test Customer",
		Interval:     models.Interval{Start: start, End: end},
		Status:       models.StatusPending,
	}
}

func TestCreateReservationWithCheck(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	res := newTestResource(t, db, models.GranularityDay)

	start := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)

	first := newReservation(res.ID, start, end)
	if err := db.CreateReservationWithCheck(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if first.ID == 0 || first.Version != 1 {
		t.Errorf("expected populated id and version 1, got id=%d version=%d", first.ID, first.Version)
	}

	t.Run("overlapping insert is rejected", func(t *testing.T) {
		clash := newReservation(res.ID, start.AddDate(0, 0, 2), end.AddDate(0, 0, 2))
		err := db.CreateReservationWithCheck(ctx, clash)
		if !errors.Is(err, ErrSlotTaken) {
			t.Errorf("expected ErrSlotTaken, got %v", err)
		}
	})

	t.Run("back-to-back insert passes", func(t *testing.T) {
		next := newReservation(res.ID, end, end.AddDate(0, 0, 2))
		if err := db.CreateReservationWithCheck(ctx, next); err != nil {
			t.Errorf("back-to-back insert should succeed, got %v", err)
		}
	})

	t.Run("non-blocking reservation frees the slot", func(t *testing.T) {
		if err := db.UpdateReservationStatusWithVersion(ctx, first.ID, first.Version, models.StatusRejected); err != nil {
			t.Fatalf("reject: %v", err)
		}
		again := newReservation(res.ID, start, end)
		if err := db.CreateReservationWithCheck(ctx, again); err != nil {
			t.Errorf("slot of rejected reservation should be free, got %v", err)
		}
	})
}

func TestGetBlockingIntervals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	res := newTestResource(t, db, models.GranularityHour)

	base := time.Date(2030, 6, 10, 10, 0, 0, 0, time.UTC)
	r1 := newReservation(res.ID, base, base.Add(2*time.Hour))
	if err := db.CreateReservationWithCheck(ctx, r1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	r2 := newReservation(res.ID, base.Add(4*time.Hour), base.Add(5*time.Hour))
	if err := db.CreateReservationWithCheck(ctx, r2); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A canceled reservation must not appear.
	if err := db.UpdateReservationStatusWithVersion(ctx, r2.ID, r2.Version, models.StatusCanceled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	intervals, err := db.GetBlockingIntervals(ctx, res.ID)
	if err != nil {
		t.Fatalf("get blocking intervals: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	if !intervals[0].Start.Equal(base) {
		t.Errorf("interval start = %v, want %v", intervals[0].Start, base)
	}
}

func TestUpdateReservationStatusWithVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	res := newTestResource(t, db, models.GranularityDay)

	start := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	r := newReservation(res.ID, start, start.AddDate(0, 0, 1))
	if err := db.CreateReservationWithCheck(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := db.UpdateReservationStatusWithVersion(ctx, r.ID, r.Version, models.StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Stale version must lose.
	err := db.UpdateReservationStatusWithVersion(ctx, r.ID, r.Version, models.StatusCanceled)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}

	got, err := db.GetReservation(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", got.Status)
	}
	if got.Version != r.Version+1 {
		t.Errorf("version = %d, want %d", got.Version, r.Version+1)
	}
}

func TestExpirePendingBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	res := newTestResource(t, db, models.GranularityDay)

	start := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	r := newReservation(res.ID, start, start.AddDate(0, 0, 1))
	if err := db.CreateReservationWithCheck(ctx, r); err != nil {
		t.Fatalf("insert: %v", err)
	}

	expired, err := db.ExpirePendingBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != r.ID {
		t.Fatalf("expected reservation %d expired, got %v", r.ID, expired)
	}

	got, err := db.GetReservation(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusCanceled {
		t.Errorf("status = %q, want canceled", got.Status)
	}

	// Freed slot is bookable again.
	again := newReservation(res.ID, start, start.AddDate(0, 0, 1))
	if err := db.CreateReservationWithCheck(ctx, again); err != nil {
		t.Errorf("slot of expired reservation should be free, got %v", err)
	}
}
