package models

import (
	"testing"
	"time"
)

func TestNewInterval(t *testing.T) {
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr bool
	}{
		{"valid interval", start, start.AddDate(0, 0, 3), false},
		{"end equals start", start, start, true},
		{"end before start", start, start.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInterval(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewInterval error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIntervalOverlaps(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	a := Interval{Start: day.Add(10 * time.Hour), End: day.Add(12 * time.Hour)}
	b := Interval{Start: day.Add(12 * time.Hour), End: day.Add(14 * time.Hour)}

	if a.Overlaps(b) {
		t.Error("touching half-open intervals must not overlap")
	}

	c := Interval{Start: day.Add(11 * time.Hour), End: day.Add(13 * time.Hour)}
	if !a.Overlaps(c) || !c.Overlaps(a) {
		t.Error("intersecting intervals must overlap in both directions")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		status string
		want   StatusCategory
	}{
		{StatusPending, CategoryBlocking},
		{StatusConfirmed, CategoryBlocking},
		{StatusCompleted, CategoryBlocking},
		{StatusCanceled, CategoryNonBlocking},
		{StatusRejected, CategoryNonBlocking},
		{"garbage", CategoryBlocking}, // unknown must not free a slot
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := CategoryOf(tt.status); got != tt.want {
				t.Errorf("CategoryOf(%q) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestReservationBlocking(t *testing.T) {
	r := &Reservation{Status: StatusPending}
	if !r.Blocking() {
		t.Error("pending reservation should block its slot")
	}

	r.Status = StatusRejected
	if r.Blocking() {
		t.Error("rejected reservation should not block its slot")
	}
}

func TestGranularityValid(t *testing.T) {
	if !GranularityDay.Valid() || !GranularityHour.Valid() {
		t.Error("known granularities should be valid")
	}
	if Granularity("week").Valid() {
		t.Error("unknown granularity should be invalid")
	}
}

func TestPromotionLive(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	p := &Promotion{
		IsActive: true,
		StartsAt: now.AddDate(0, 0, -1),
		EndsAt:   now.AddDate(0, 0, 1),
	}

	if !p.Live(now) {
		t.Error("promotion inside its window should be live")
	}
	if p.Live(p.EndsAt) {
		t.Error("promotion at its end instant should not be live")
	}

	p.IsActive = false
	if p.Live(now) {
		t.Error("inactive promotion should never be live")
	}
}
