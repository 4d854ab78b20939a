package models

import (
	"fmt"
	"time"
)

// Interval is a half-open time span [Start, End).
// Construct through NewInterval so Start < End holds everywhere downstream.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval builds an interval, rejecting end-before-start at the boundary.
func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, fmt.Errorf("interval start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the span length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect.
// [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1, so a checkout at
// 12:00 and a new check-in at 12:00 do not collide.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// ContainsInstant reports whether t falls inside the interval.
func (iv Interval) ContainsInstant(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Granularity is the booking unit of a resource.
type Granularity string

const (
	// GranularityDay books whole calendar days; the checkout day itself is
	// not occupied (a stay from day N to day N+3 holds nights N..N+2).
	GranularityDay Granularity = "day"
	// GranularityHour books contiguous whole-hour spans within a day.
	GranularityHour Granularity = "hour"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	return g == GranularityDay || g == GranularityHour
}
