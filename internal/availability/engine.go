// Package availability computes bookable slots for rentable resources.
//
// Every function here is pure: callers fetch the blocking reservation
// intervals for one resource and pass them in. The in-memory checks give
// fast feedback to pickers and forms; the authoritative overlap check runs
// inside the store transaction at insert time (see database.CreateReservationWithCheck).
package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"rentadesk/internal/models"
)

const (
	// SuggestDayCap bounds the default-slot search for per-day resources.
	SuggestDayCap = 60
	// SuggestHourCap bounds the default-slot search for per-hour resources.
	SuggestHourCap = 48
)

// ErrorKind classifies user-recoverable validation failures.
type ErrorKind string

const (
	KindIncompleteSelection ErrorKind = "incomplete_selection"
	KindInvalidOrder        ErrorKind = "invalid_order"
	KindPastDate            ErrorKind = "past_date"
	KindSlotConflict        ErrorKind = "slot_conflict"
)

// ValidationError is returned by ValidateCandidate. It is recoverable by
// the user and must be surfaced inline, never logged as a system error.
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsValidation extracts a *ValidationError from err, if it carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Overlaps reports whether two half-open intervals [s1,e1) and [s2,e2)
// intersect: s1 < e2 && s2 < e1. A checkout at 12:00 and a check-in at
// 12:00 on the same resource do not overlap, so back-to-back bookings pass.
func Overlaps(a, b models.Interval) bool {
	return a.Overlaps(b)
}

// IsSlotAvailable reports whether candidate collides with none of the
// existing blocking intervals. O(n), no side effects.
func IsSlotAvailable(candidate models.Interval, existing []models.Interval) bool {
	for _, iv := range existing {
		if candidate.Overlaps(iv) {
			return false
		}
	}
	return true
}

// DisabledDateRanges derives the calendar ranges a per-day picker must
// grey out: everything strictly before today, plus for each blocking
// interval the days [start day, end day). The end (checkout) day stays
// selectable as a new check-in day, enabling same-day turnover.
// The result is sorted and merged.
func DisabledDateRanges(existing []models.Interval, now time.Time) []models.Interval {
	ranges := make([]models.Interval, 0, len(existing)+1)

	today := dayFloor(now)
	if today.After(farPast) {
		ranges = append(ranges, models.Interval{Start: farPast, End: today})
	}

	for _, iv := range existing {
		blockStart := dayFloor(iv.Start)
		blockEnd := dayFloor(iv.End)
		if !blockEnd.After(blockStart) {
			// Interval shorter than a day still occupies its start night.
			blockEnd = blockStart.AddDate(0, 0, 1)
		}
		ranges = append(ranges, models.Interval{Start: blockStart, End: blockEnd})
	}

	return mergeRanges(ranges)
}

// DisabledHourRanges derives the blocked spans of one calendar day for a
// per-hour picker: past hours of that day, plus each blocking interval
// clamped to the day. Hours before a prior reservation's end on a
// turnover day come out disabled while the rest of the day stays open.
// The result is sorted and merged.
func DisabledHourRanges(existing []models.Interval, day time.Time, now time.Time) []models.Interval {
	dayStart := dayFloor(day)
	dayEnd := dayStart.AddDate(0, 0, 1)

	ranges := make([]models.Interval, 0, len(existing)+1)

	// Nothing before "now" is bookable.
	if cutoff := hourCeil(now); cutoff.After(dayStart) {
		end := cutoff
		if end.After(dayEnd) {
			end = dayEnd
		}
		ranges = append(ranges, models.Interval{Start: dayStart, End: end})
	}

	for _, iv := range existing {
		start, end := iv.Start, iv.End
		if start.Before(dayStart) {
			start = dayStart
		}
		if end.After(dayEnd) {
			end = dayEnd
		}
		if start.Before(end) {
			ranges = append(ranges, models.Interval{Start: start, End: end})
		}
	}

	return mergeRanges(ranges)
}

// SuggestDefaultSlot proposes the earliest plausible candidate so the
// picker never opens on a selection that is instantly rejected.
//
// Per-day it walks forward from today proposing one-night stays; per-hour
// it rounds now up to the next whole hour and proposes one-hour slots.
// The search is capped, and exhaustion is a valid outcome meaning "no
// near-term availability", reported as ok=false rather than an error.
func SuggestDefaultSlot(existing []models.Interval, g models.Granularity, now time.Time) (models.Interval, bool) {
	return SuggestSlotSpanning(existing, g, now, 1)
}

// SuggestSlotSpanning is SuggestDefaultSlot with a configurable span:
// the number of nights (per-day) or whole hours (per-hour) the proposed
// slot covers. Spans below one are treated as one. The start position
// still advances one unit at a time, so a long span can slot into the
// earliest gap wide enough to hold it.
func SuggestSlotSpanning(existing []models.Interval, g models.Granularity, now time.Time, span int) (models.Interval, bool) {
	if span < 1 {
		span = 1
	}

	switch g {
	case models.GranularityDay:
		day := dayFloor(now)
		for i := 0; i < SuggestDayCap; i++ {
			candidate := models.Interval{Start: day, End: day.AddDate(0, 0, span)}
			if IsSlotAvailable(candidate, existing) {
				return candidate, true
			}
			day = day.AddDate(0, 0, 1)
		}
	case models.GranularityHour:
		hour := hourCeil(now)
		for i := 0; i < SuggestHourCap; i++ {
			candidate := models.Interval{Start: hour, End: hour.Add(time.Duration(span) * time.Hour)}
			if IsSlotAvailable(candidate, existing) {
				return candidate, true
			}
			hour = hour.Add(time.Hour)
		}
	}
	return models.Interval{}, false
}

// ValidateCandidate is the single gate a reservation request passes before
// submission. It runs client-side for responsive feedback and again at
// submission time, because the caller's snapshot can be stale relative to
// concurrent bookers.
func ValidateCandidate(start, end *time.Time, existing []models.Interval, g models.Granularity, now time.Time) error {
	if start == nil || end == nil {
		return &ValidationError{Kind: KindIncompleteSelection, Message: "select both start and end"}
	}
	if !start.Before(*end) {
		return &ValidationError{Kind: KindInvalidOrder, Message: "end must be after start"}
	}

	switch g {
	case models.GranularityDay:
		// Day bookings count nights, so starting on the current day is
		// fine even when the clock is past midnight.
		if start.Before(dayFloor(now)) {
			return &ValidationError{Kind: KindPastDate, Message: "start date is in the past"}
		}
	case models.GranularityHour:
		if start.Before(now) {
			return &ValidationError{Kind: KindPastDate, Message: "start time is in the past"}
		}
		if end.Sub(*start) < time.Hour {
			return &ValidationError{Kind: KindInvalidOrder, Message: "booking must span at least one full hour"}
		}
	}

	candidate := models.Interval{Start: *start, End: *end}
	if !IsSlotAvailable(candidate, existing) {
		return &ValidationError{Kind: KindSlotConflict, Message: "slot overlaps an existing reservation"}
	}
	return nil
}

var farPast = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func dayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func hourCeil(t time.Time) time.Time {
	floor := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	if floor.Equal(t) {
		return floor
	}
	return floor.Add(time.Hour)
}

// mergeRanges sorts intervals by start and coalesces overlapping or
// touching ones, so pickers render each blocked span once.
func mergeRanges(ranges []models.Interval) []models.Interval {
	if len(ranges) == 0 {
		return nil
	}

	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].Start.Before(ranges[j].Start)
	})

	merged := []models.Interval{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
