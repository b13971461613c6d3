package model

import (
	"errors"
	"time"
)

// Window is a working window expressed in minutes from midnight, with an
// optional break. Rules store clock minutes rather than timestamps so the same
// rule can be anchored to any calendar date.
type Window struct {
	StartMinute      int
	EndMinute        int
	BreakStartMinute *int
	BreakEndMinute   *int
}

var (
	ErrWindowInverted   = errors.New("window start must be before window end")
	ErrBreakIncomplete  = errors.New("break start and break end must both be set")
	ErrBreakInverted    = errors.New("break start must be before break end")
	ErrBreakOutOfWindow = errors.New("break must fall inside the working window")
)

func (w Window) HasBreak() bool {
	return w.BreakStartMinute != nil && w.BreakEndMinute != nil
}

func (w Window) Validate() error {
	if w.StartMinute >= w.EndMinute {
		return ErrWindowInverted
	}
	if (w.BreakStartMinute == nil) != (w.BreakEndMinute == nil) {
		return ErrBreakIncomplete
	}
	if w.HasBreak() {
		if *w.BreakStartMinute >= *w.BreakEndMinute {
			return ErrBreakInverted
		}
		if *w.BreakStartMinute < w.StartMinute || *w.BreakEndMinute > w.EndMinute {
			return ErrBreakOutOfWindow
		}
	}
	return nil
}

// RecurringRule is a provider's weekly working window for one weekday.
type RecurringRule struct {
	ProviderID string
	Weekday    time.Weekday
	Available  bool
	Window     Window
	Notes      string
}

// DateOverride replaces the weekday rule for one calendar date. An override
// with Available=false closes the date even when the weekday rule opens it.
type DateOverride struct {
	ProviderID string
	Date       time.Time // midnight, provider-local business time
	Available  bool
	Window     Window
	Notes      string
}
