package availability

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect:
// [s1,e1) overlaps [s2,e2) iff s1 < e2 && e1 > s2. Back-to-back intervals,
// where one ends exactly when the other starts, do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// SlotStarts enumerates candidate start times inside the window at a fixed
// step, skipping any candidate whose interval of length duration would cross
// the window's break or one of the busy intervals.
//
// notBefore/notAfter clamp the enumeration against the caller's query range:
// no slot starts before notBefore and no slot ends after notAfter (zero values
// disable the bound). All times are expected in the same location.
func SlotStarts(win EffectiveWindow, duration, step time.Duration, busy []Interval, notBefore, notAfter time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !win.End.After(win.Start) {
		return nil
	}

	first := win.Start
	if !notBefore.IsZero() && notBefore.After(first) {
		first = alignToStep(win.Start, notBefore, step)
	}
	last := win.End
	if !notAfter.IsZero() && notAfter.Before(last) {
		last = notAfter
	}

	var starts []time.Time
	for t := first; !t.Add(duration).After(last); t = t.Add(step) {
		end := t.Add(duration)
		if win.HasBreak() && Overlaps(t, end, win.BreakStart, win.BreakEnd) {
			continue
		}
		if overlapsAny(t, end, busy) {
			continue
		}
		starts = append(starts, t)
	}
	return starts
}

// alignToStep returns the earliest step-aligned candidate at or after bound,
// keeping the grid anchored to the window start.
func alignToStep(windowStart, bound time.Time, step time.Duration) time.Time {
	offset := bound.Sub(windowStart)
	steps := offset / step
	if offset%step != 0 {
		steps++
	}
	return windowStart.Add(steps * step)
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
