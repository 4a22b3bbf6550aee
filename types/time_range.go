package types

import (
	"fmt"
)

// TimeRange is a half-open interval [In, Out) on the timeline.
type TimeRange struct {
	In  Rational
	Out Rational
}

func NewTimeRange(in, out Rational) TimeRange {
	return TimeRange{In: in, Out: out}
}

// TimeRangeAt returns a zero-length range anchored at t; used for
// point queries (video frames).
func TimeRangeAt(t Rational) TimeRange {
	return TimeRange{In: t, Out: t}
}

func (r TimeRange) Length() Rational {
	return r.Out.Sub(r.In)
}

func (r TimeRange) IsPoint() bool {
	return r.In.Equal(r.Out)
}

// Intersect clips r to other. The result is empty (Length() == 0 or
// negative) when the ranges do not overlap.
func (r TimeRange) Intersect(other TimeRange) TimeRange {
	out := r
	if out.In.Less(other.In) {
		out.In = other.In
	}
	if other.Out.Less(out.Out) {
		out.Out = other.Out
	}
	return out
}

// Overlaps reports whether the half-open intervals share any time.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.In.Less(other.Out) && other.In.Less(r.Out)
}

// Contains reports whether t is inside the half-open interval.
func (r TimeRange) Contains(t Rational) bool {
	return r.In.LessOrEqual(t) && t.Less(r.Out)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.In, r.Out)
}
