package model

import (
	"errors"
	"testing"
)

func intp(v int) *int { return &v }

func TestWindowValidate(t *testing.T) {
	cases := []struct {
		name string
		win  Window
		want error
	}{
		{"valid no break", Window{StartMinute: 540, EndMinute: 1020}, nil},
		{"valid with break", Window{StartMinute: 540, EndMinute: 1020, BreakStartMinute: intp(720), BreakEndMinute: intp(780)}, nil},
		{"inverted window", Window{StartMinute: 600, EndMinute: 540}, ErrWindowInverted},
		{"empty window", Window{StartMinute: 540, EndMinute: 540}, ErrWindowInverted},
		{"half break", Window{StartMinute: 540, EndMinute: 1020, BreakStartMinute: intp(720)}, ErrBreakIncomplete},
		{"inverted break", Window{StartMinute: 540, EndMinute: 1020, BreakStartMinute: intp(780), BreakEndMinute: intp(720)}, ErrBreakInverted},
		{"break before window", Window{StartMinute: 540, EndMinute: 1020, BreakStartMinute: intp(500), BreakEndMinute: intp(600)}, ErrBreakOutOfWindow},
		{"break after window", Window{StartMinute: 540, EndMinute: 1020, BreakStartMinute: intp(1000), BreakEndMinute: intp(1080)}, ErrBreakOutOfWindow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.win.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestStatusClassification(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusRescheduled} {
		if !s.Active() || s.Terminal() {
			t.Fatalf("%s should be active and not terminal", s)
		}
	}
	for _, s := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		if s.Active() || !s.Terminal() {
			t.Fatalf("%s should be terminal and not active", s)
		}
	}
}
