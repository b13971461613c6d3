package availability

import (
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 1, 5, h, m, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"disjoint", at(9, 0), at(10, 0), at(11, 0), at(12, 0), false},
		{"back-to-back", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"partial", at(9, 0), at(10, 0), at(9, 30), at(10, 30), true},
		{"contained", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"identical", at(9, 0), at(10, 0), at(9, 0), at(10, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSlotStarts_Grid(t *testing.T) {
	win := EffectiveWindow{Start: at(9, 0), End: at(12, 0)}
	starts := SlotStarts(win, time.Hour, 30*time.Minute, nil, time.Time{}, time.Time{})

	want := []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30), at(11, 0)}
	if len(starts) != len(want) {
		t.Fatalf("got %d starts, want %d: %v", len(starts), len(want), starts)
	}
	for i := range want {
		if !starts[i].Equal(want[i]) {
			t.Fatalf("starts[%d] = %s, want %s", i, starts[i], want[i])
		}
	}
}

func TestSlotStarts_BusyInterval(t *testing.T) {
	win := EffectiveWindow{Start: at(9, 0), End: at(12, 0)}
	busy := []Interval{{Start: at(10, 0), End: at(11, 0)}}
	starts := SlotStarts(win, time.Hour, 30*time.Minute, busy, time.Time{}, time.Time{})

	// 09:30, 10:00 and 10:30 all cross the booking; 11:00 starts the moment
	// it ends and stays.
	want := []time.Time{at(9, 0), at(11, 0)}
	if len(starts) != len(want) {
		t.Fatalf("got %d starts, want %d: %v", len(starts), len(want), starts)
	}
	for i := range want {
		if !starts[i].Equal(want[i]) {
			t.Fatalf("starts[%d] = %s, want %s", i, starts[i], want[i])
		}
	}
}

func TestSlotStarts_Break(t *testing.T) {
	win := EffectiveWindow{
		Start:      at(9, 0),
		End:        at(17, 0),
		BreakStart: at(12, 0),
		BreakEnd:   at(13, 0),
	}
	starts := SlotStarts(win, time.Hour, time.Hour, nil, time.Time{}, time.Time{})

	for _, s := range starts {
		if Overlaps(s, s.Add(time.Hour), win.BreakStart, win.BreakEnd) {
			t.Fatalf("slot starting %s crosses the break", s)
		}
	}
	// 09..11 before the break, 13..16 after.
	if len(starts) != 7 {
		t.Fatalf("got %d starts, want 7: %v", len(starts), starts)
	}
}

func TestSlotStarts_WindowShorterThanDuration(t *testing.T) {
	win := EffectiveWindow{Start: at(9, 0), End: at(9, 45)}
	if starts := SlotStarts(win, time.Hour, 30*time.Minute, nil, time.Time{}, time.Time{}); len(starts) != 0 {
		t.Fatalf("expected no starts, got %v", starts)
	}
}

func TestSlotStarts_ClampKeepsGridAligned(t *testing.T) {
	win := EffectiveWindow{Start: at(9, 0), End: at(12, 0)}
	// Bound falls between grid points; the first slot snaps forward to the
	// next point anchored at the window start, not to the bound itself.
	starts := SlotStarts(win, time.Hour, 30*time.Minute, nil, at(9, 40), at(11, 30))

	want := []time.Time{at(10, 0), at(10, 30)}
	if len(starts) != len(want) {
		t.Fatalf("got %d starts, want %d: %v", len(starts), len(want), starts)
	}
	for i := range want {
		if !starts[i].Equal(want[i]) {
			t.Fatalf("starts[%d] = %s, want %s", i, starts[i], want[i])
		}
	}
}

func TestSlotStarts_InvalidInputs(t *testing.T) {
	win := EffectiveWindow{Start: at(9, 0), End: at(12, 0)}
	if got := SlotStarts(win, 0, 30*time.Minute, nil, time.Time{}, time.Time{}); got != nil {
		t.Fatalf("zero duration: got %v", got)
	}
	if got := SlotStarts(win, time.Hour, 0, nil, time.Time{}, time.Time{}); got != nil {
		t.Fatalf("zero step: got %v", got)
	}
	inverted := EffectiveWindow{Start: at(12, 0), End: at(9, 0)}
	if got := SlotStarts(inverted, time.Hour, 30*time.Minute, nil, time.Time{}, time.Time{}); got != nil {
		t.Fatalf("inverted window: got %v", got)
	}
}
