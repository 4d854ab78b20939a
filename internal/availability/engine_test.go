package availability

import (
	"testing"
	"time"

	"rentadesk/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func iv(start, end time.Time) models.Interval {
	return models.Interval{Start: start, End: end}
}

func TestOverlaps(t *testing.T) {
	day := date(2024, time.June, 10)

	tests := []struct {
		name string
		a, b models.Interval
		want bool
	}{
		{
			name: "back-to-back is not an overlap",
			a:    iv(day.Add(10*time.Hour), day.Add(12*time.Hour)),
			b:    iv(day.Add(12*time.Hour), day.Add(14*time.Hour)),
			want: false,
		},
		{
			name: "one minute past the boundary overlaps",
			a:    iv(day.Add(10*time.Hour), day.Add(12*time.Hour+time.Minute)),
			b:    iv(day.Add(12*time.Hour), day.Add(14*time.Hour)),
			want: true,
		},
		{
			name: "contained interval overlaps",
			a:    iv(day.Add(11*time.Hour), day.Add(12*time.Hour)),
			b:    iv(day.Add(10*time.Hour), day.Add(14*time.Hour)),
			want: true,
		},
		{
			name: "disjoint intervals do not overlap",
			a:    iv(day.Add(8*time.Hour), day.Add(9*time.Hour)),
			b:    iv(day.Add(12*time.Hour), day.Add(14*time.Hour)),
			want: false,
		},
		{
			name: "identical intervals overlap",
			a:    iv(day, day.AddDate(0, 0, 1)),
			b:    iv(day, day.AddDate(0, 0, 1)),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			// Symmetry must hold for every pair.
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps(b, a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSlotAvailable_EmptyCalendar(t *testing.T) {
	candidate := iv(date(2024, time.June, 10), date(2024, time.June, 12))
	if !IsSlotAvailable(candidate, nil) {
		t.Error("candidate against empty calendar should always be available")
	}
}

func TestIsSlotAvailable_DayScenario(t *testing.T) {
	// One existing stay [2024-06-10, 2024-06-13): nights 10, 11, 12.
	existing := []models.Interval{
		iv(date(2024, time.June, 10), date(2024, time.June, 13)),
	}

	tests := []struct {
		name      string
		candidate models.Interval
		want      bool
	}{
		{
			name:      "check-in on checkout day is allowed",
			candidate: iv(date(2024, time.June, 13), date(2024, time.June, 15)),
			want:      true,
		},
		{
			name:      "overlapping the night of the 12th conflicts",
			candidate: iv(date(2024, time.June, 12), date(2024, time.June, 14)),
			want:      false,
		},
		{
			name:      "checkout on existing check-in day is allowed",
			candidate: iv(date(2024, time.June, 8), date(2024, time.June, 10)),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSlotAvailable(tt.candidate, existing); got != tt.want {
				t.Errorf("IsSlotAvailable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSlotAvailable_HourScenario(t *testing.T) {
	// Existing hourly reservation [14:00, 16:00).
	existing := []models.Interval{
		iv(at(2024, time.June, 10, 14, 0), at(2024, time.June, 10, 16, 0)),
	}

	free := iv(at(2024, time.June, 10, 13, 0), at(2024, time.June, 10, 14, 0))
	if !IsSlotAvailable(free, existing) {
		t.Error("[13:00,14:00) should be available next to [14:00,16:00)")
	}

	clash := iv(at(2024, time.June, 10, 13, 30), at(2024, time.June, 10, 14, 30))
	if IsSlotAvailable(clash, existing) {
		t.Error("[13:30,14:30) should conflict with [14:00,16:00)")
	}
}

func TestDisabledDateRanges(t *testing.T) {
	now := at(2024, time.June, 5, 9, 30)
	existing := []models.Interval{
		iv(date(2024, time.June, 10), date(2024, time.June, 13)),
		iv(date(2024, time.June, 13), date(2024, time.June, 14)), // back-to-back stay
		iv(date(2024, time.June, 20), date(2024, time.June, 21)),
	}

	ranges := DisabledDateRanges(existing, now)

	// Past range, merged 10..14 block, 20..21 block.
	if len(ranges) != 3 {
		t.Fatalf("got %d ranges, want 3: %v", len(ranges), ranges)
	}

	if !ranges[0].End.Equal(date(2024, time.June, 5)) {
		t.Errorf("past range should end at start of today, got %v", ranges[0].End)
	}

	if !ranges[1].Start.Equal(date(2024, time.June, 10)) || !ranges[1].End.Equal(date(2024, time.June, 14)) {
		t.Errorf("adjacent stays should merge into [06-10, 06-14), got %v", ranges[1])
	}

	// Checkout day of the last stay must stay selectable.
	if ranges[2].End.After(date(2024, time.June, 21)) {
		t.Errorf("checkout day 06-21 must remain selectable, got end %v", ranges[2].End)
	}
}

func TestDisabledDateRanges_SubDayIntervalBlocksItsNight(t *testing.T) {
	now := date(2024, time.June, 1)
	existing := []models.Interval{
		iv(at(2024, time.June, 10, 9, 0), at(2024, time.June, 10, 17, 0)),
	}

	ranges := DisabledDateRanges(existing, now)
	want := iv(date(2024, time.June, 10), date(2024, time.June, 11))
	if len(ranges) != 2 || !ranges[1].Start.Equal(want.Start) || !ranges[1].End.Equal(want.End) {
		t.Errorf("sub-day interval should block its own day, got %v", ranges)
	}
}

func TestDisabledHourRanges(t *testing.T) {
	day := date(2024, time.June, 10)
	now := at(2024, time.June, 10, 9, 15)
	existing := []models.Interval{
		iv(at(2024, time.June, 10, 14, 0), at(2024, time.June, 10, 16, 0)),
		// Multi-day stay checking out at 12:00 on the 10th.
		iv(at(2024, time.June, 8, 12, 0), at(2024, time.June, 10, 12, 0)),
	}

	ranges := DisabledHourRanges(existing, day, now)

	// Past hours [00:00,10:00) merge with the checkout tail [00:00,12:00),
	// then [14:00,16:00) stands alone.
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2: %v", len(ranges), ranges)
	}
	if !ranges[0].Start.Equal(day) || !ranges[0].End.Equal(day.Add(12*time.Hour)) {
		t.Errorf("morning block = %v, want [00:00,12:00)", ranges[0])
	}
	if !ranges[1].Start.Equal(day.Add(14*time.Hour)) || !ranges[1].End.Equal(day.Add(16*time.Hour)) {
		t.Errorf("afternoon block = %v, want [14:00,16:00)", ranges[1])
	}

	// The turnover gap [12:00,14:00) stays open.
	for _, r := range ranges {
		if r.ContainsInstant(day.Add(13 * time.Hour)) {
			t.Errorf("13:00 should remain bookable, blocked by %v", r)
		}
	}
}

func TestDisabledHourRanges_PastDayFullyBlocked(t *testing.T) {
	day := date(2024, time.June, 1)
	now := at(2024, time.June, 10, 9, 0)

	ranges := DisabledHourRanges(nil, day, now)
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(ranges))
	}
	if !ranges[0].Start.Equal(day) || !ranges[0].End.Equal(day.AddDate(0, 0, 1)) {
		t.Errorf("past day should be fully blocked, got %v", ranges[0])
	}
}

func TestSuggestDefaultSlot_Day(t *testing.T) {
	now := at(2024, time.June, 5, 11, 0)

	t.Run("empty calendar proposes tonight", func(t *testing.T) {
		slot, ok := SuggestDefaultSlot(nil, models.GranularityDay, now)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.Start.Equal(date(2024, time.June, 5)) || !slot.End.Equal(date(2024, time.June, 6)) {
			t.Errorf("slot = %v, want tonight", slot)
		}
	})

	t.Run("skips booked nights", func(t *testing.T) {
		existing := []models.Interval{
			iv(date(2024, time.June, 5), date(2024, time.June, 8)),
		}
		slot, ok := SuggestDefaultSlot(existing, models.GranularityDay, now)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.Start.Equal(date(2024, time.June, 8)) {
			t.Errorf("slot start = %v, want 2024-06-08", slot.Start)
		}
		if !IsSlotAvailable(slot, existing) {
			t.Error("suggested slot must itself be available")
		}
	})

	t.Run("fully booked horizon yields no suggestion", func(t *testing.T) {
		existing := []models.Interval{
			iv(date(2024, time.June, 5), date(2024, time.October, 5)), // ~120 days
		}
		if _, ok := SuggestDefaultSlot(existing, models.GranularityDay, now); ok {
			t.Error("expected no suggestion when booked past the search cap")
		}
	})
}

func TestSuggestDefaultSlot_Hour(t *testing.T) {
	now := at(2024, time.June, 5, 11, 20)

	t.Run("rounds up to the next whole hour", func(t *testing.T) {
		slot, ok := SuggestDefaultSlot(nil, models.GranularityHour, now)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.Start.Equal(at(2024, time.June, 5, 12, 0)) {
			t.Errorf("slot start = %v, want 12:00", slot.Start)
		}
		if slot.Duration() != time.Hour {
			t.Errorf("slot duration = %v, want 1h", slot.Duration())
		}
	})

	t.Run("on the hour stays on the hour", func(t *testing.T) {
		slot, ok := SuggestDefaultSlot(nil, models.GranularityHour, at(2024, time.June, 5, 11, 0))
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.Start.Equal(at(2024, time.June, 5, 11, 0)) {
			t.Errorf("slot start = %v, want 11:00", slot.Start)
		}
	})

	t.Run("fully booked horizon yields no suggestion", func(t *testing.T) {
		existing := []models.Interval{
			iv(at(2024, time.June, 5, 0, 0), at(2024, time.June, 10, 0, 0)), // 100+ hours
		}
		if _, ok := SuggestDefaultSlot(existing, models.GranularityHour, now); ok {
			t.Error("expected no suggestion when booked past the search cap")
		}
	})

	t.Run("suggestion is always itself available", func(t *testing.T) {
		existing := []models.Interval{
			iv(at(2024, time.June, 5, 12, 0), at(2024, time.June, 5, 15, 0)),
		}
		slot, ok := SuggestDefaultSlot(existing, models.GranularityHour, now)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !IsSlotAvailable(slot, existing) {
			t.Errorf("suggested slot %v overlaps existing reservations", slot)
		}
	})
}

func TestSuggestSlotSpanning(t *testing.T) {
	now := at(2024, time.June, 5, 11, 0)

	t.Run("two-night default starts tonight on an empty calendar", func(t *testing.T) {
		slot, ok := SuggestSlotSpanning(nil, models.GranularityDay, now, 2)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.Start.Equal(date(2024, time.June, 5)) || !slot.End.Equal(date(2024, time.June, 7)) {
			t.Errorf("slot = %v, want [06-05, 06-07)", slot)
		}
	})

	t.Run("two-night default needs a two-night gap", func(t *testing.T) {
		// Night of the 6th is taken, so [05,07) collides; the first
		// gap wide enough starts on the 7th.
		existing := []models.Interval{
			iv(date(2024, time.June, 6), date(2024, time.June, 7)),
		}
		slot, ok := SuggestSlotSpanning(existing, models.GranularityDay, now, 2)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.Start.Equal(date(2024, time.June, 7)) || !slot.End.Equal(date(2024, time.June, 9)) {
			t.Errorf("slot = %v, want [06-07, 06-09)", slot)
		}
		if !IsSlotAvailable(slot, existing) {
			t.Error("suggested slot must itself be available")
		}
	})

	t.Run("two-hour default spans two hours", func(t *testing.T) {
		slot, ok := SuggestSlotSpanning(nil, models.GranularityHour, at(2024, time.June, 5, 11, 20), 2)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.Start.Equal(at(2024, time.June, 5, 12, 0)) {
			t.Errorf("slot start = %v, want 12:00", slot.Start)
		}
		if slot.Duration() != 2*time.Hour {
			t.Errorf("slot duration = %v, want 2h", slot.Duration())
		}
	})

	t.Run("span below one falls back to one unit", func(t *testing.T) {
		slot, ok := SuggestSlotSpanning(nil, models.GranularityDay, now, 0)
		if !ok {
			t.Fatal("expected a suggestion")
		}
		if !slot.End.Equal(date(2024, time.June, 6)) {
			t.Errorf("slot end = %v, want one night", slot.End)
		}
	})
}

func TestValidateCandidate(t *testing.T) {
	now := at(2024, time.June, 5, 11, 0)
	start := at(2024, time.June, 10, 10, 0)
	end := at(2024, time.June, 10, 12, 0)
	yesterday := date(2024, time.June, 4)
	today := date(2024, time.June, 5)

	existing := []models.Interval{
		iv(at(2024, time.June, 10, 11, 0), at(2024, time.June, 10, 13, 0)),
	}

	tests := []struct {
		name     string
		start    *time.Time
		end      *time.Time
		existing []models.Interval
		g        models.Granularity
		wantKind ErrorKind
	}{
		{
			name:     "missing start",
			start:    nil,
			end:      &end,
			g:        models.GranularityHour,
			wantKind: KindIncompleteSelection,
		},
		{
			name:     "missing end",
			start:    &start,
			end:      nil,
			g:        models.GranularityDay,
			wantKind: KindIncompleteSelection,
		},
		{
			name:     "end before start",
			start:    &end,
			end:      &start,
			g:        models.GranularityHour,
			wantKind: KindInvalidOrder,
		},
		{
			name:     "start in the past",
			start:    &yesterday,
			end:      &today,
			g:        models.GranularityDay,
			wantKind: KindPastDate,
		},
		{
			name:     "contained inside existing reservation",
			start:    timePtr(at(2024, time.June, 10, 11, 0)),
			end:      timePtr(at(2024, time.June, 10, 12, 0)),
			existing: existing,
			g:        models.GranularityHour,
			wantKind: KindSlotConflict,
		},
		{
			name:     "hourly shorter than one hour",
			start:    timePtr(at(2024, time.June, 10, 10, 0)),
			end:      timePtr(at(2024, time.June, 10, 10, 30)),
			g:        models.GranularityHour,
			wantKind: KindInvalidOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.start, tt.end, tt.existing, tt.g, now)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			ve, ok := AsValidation(err)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ve.Kind, tt.wantKind)
			}
		})
	}

	t.Run("valid hourly candidate passes", func(t *testing.T) {
		s := at(2024, time.June, 10, 13, 0)
		e := at(2024, time.June, 10, 14, 0)
		if err := ValidateCandidate(&s, &e, existing, models.GranularityHour, now); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("day booking starting today passes mid-day", func(t *testing.T) {
		s := date(2024, time.June, 5)
		e := date(2024, time.June, 6)
		if err := ValidateCandidate(&s, &e, nil, models.GranularityDay, now); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func timePtr(t time.Time) *time.Time {
	return &t
}
