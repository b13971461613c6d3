package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"therapy-booking/internal/availability"
	"therapy-booking/internal/model"
	"therapy-booking/internal/storage"
)

// Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type fixture struct {
	directory    *storage.MemoryDirectory
	rules        *storage.MemoryAvailability
	appointments *storage.MemoryAppointments
	generator    *Generator
}

func newFixture(step time.Duration) *fixture {
	f := &fixture{
		directory:    storage.NewMemoryDirectory(),
		rules:        storage.NewMemoryAvailability(),
		appointments: storage.NewMemoryAppointments(),
	}
	f.directory.PutService(model.Service{ID: "svc-1", Name: "Individual Therapy", DurationMinutes: 60, Active: true})
	f.directory.PutProvider(model.Provider{ID: "prov-1", Name: "Dr. Ada", Active: true, ServiceIDs: []string{"svc-1"}})
	f.rules.PutRule(model.RecurringRule{
		ProviderID: "prov-1",
		Weekday:    time.Monday,
		Available:  true,
		Window:     model.Window{StartMinute: 540, EndMinute: 720}, // 09:00-12:00
	})
	resolver := availability.NewResolver(f.rules)
	f.generator = NewGenerator(f.directory, resolver, f.appointments, step)
	return f
}

func (f *fixture) book(t *testing.T, start, end time.Time) {
	t.Helper()
	err := f.appointments.Insert(context.Background(), &model.Appointment{
		ID:         start.Format(time.RFC3339),
		ClientID:   "cli-1",
		ProviderID: "prov-1",
		ServiceID:  "svc-1",
		StartTime:  start,
		EndTime:    end,
		Status:     model.StatusScheduled,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func starts(res Result) []time.Time {
	out := make([]time.Time, len(res.Slots))
	for i, s := range res.Slots {
		out[i] = s.StartTime
	}
	return out
}

func TestGenerate_OpenDay(t *testing.T) {
	f := newFixture(30 * time.Minute)

	res, err := f.generator.Generate(context.Background(), Request{
		ServiceID: "svc-1",
		From:      at(9, 0),
		To:        at(12, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Truncated {
		t.Fatal("unexpected truncation")
	}

	want := []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30), at(11, 0)}
	got := starts(res)
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	for _, s := range res.Slots {
		if s.ProviderID != "prov-1" || s.DurationMinutes != 60 {
			t.Fatalf("bad slot metadata: %+v", s)
		}
		if !s.EndTime.Equal(s.StartTime.Add(time.Hour)) {
			t.Fatalf("slot end %s not start plus duration", s.EndTime)
		}
	}
}

func TestGenerate_ExcludesBookedIntervals(t *testing.T) {
	f := newFixture(30 * time.Minute)
	f.book(t, at(10, 0), at(11, 0))

	res, err := f.generator.Generate(context.Background(), Request{
		ServiceID: "svc-1",
		From:      at(9, 0),
		To:        at(12, 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []time.Time{at(9, 0), at(11, 0)}
	got := starts(res)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestGenerate_ClosedOverride(t *testing.T) {
	f := newFixture(30 * time.Minute)
	f.rules.PutOverride(model.DateOverride{
		ProviderID: "prov-1",
		Date:       monday,
		Available:  false,
	})

	res, err := f.generator.Generate(context.Background(), Request{
		ServiceID: "svc-1",
		From:      at(9, 0),
		To:        at(12, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Slots) != 0 {
		t.Fatalf("closed day produced slots: %v", starts(res))
	}
}

func TestGenerate_MultiProviderOrdering(t *testing.T) {
	f := newFixture(time.Hour)
	f.directory.PutProvider(model.Provider{ID: "prov-2", Name: "Dr. Zoe", Active: true, ServiceIDs: []string{"svc-1"}})
	f.rules.PutRule(model.RecurringRule{
		ProviderID: "prov-2",
		Weekday:    time.Monday,
		Available:  true,
		Window:     model.Window{StartMinute: 540, EndMinute: 660}, // 09:00-11:00
	})

	res, err := f.generator.Generate(context.Background(), Request{
		ServiceID: "svc-1",
		From:      at(9, 0),
		To:        at(12, 0),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Ordered by start, then provider name on ties.
	type slot struct {
		start time.Time
		prov  string
	}
	want := []slot{
		{at(9, 0), "prov-1"},
		{at(9, 0), "prov-2"},
		{at(10, 0), "prov-1"},
		{at(10, 0), "prov-2"},
		{at(11, 0), "prov-1"},
	}
	if len(res.Slots) != len(want) {
		t.Fatalf("got %d slots, want %d", len(res.Slots), len(want))
	}
	for i, w := range want {
		if !res.Slots[i].StartTime.Equal(w.start) || res.Slots[i].ProviderID != w.prov {
			t.Fatalf("slot[%d] = (%s, %s), want (%s, %s)",
				i, res.Slots[i].StartTime, res.Slots[i].ProviderID, w.start, w.prov)
		}
	}
}

func TestGenerate_ProviderFilter(t *testing.T) {
	f := newFixture(time.Hour)
	f.directory.PutProvider(model.Provider{ID: "prov-2", Name: "Dr. Zoe", Active: true, ServiceIDs: []string{"svc-1"}})
	f.rules.PutRule(model.RecurringRule{
		ProviderID: "prov-2",
		Weekday:    time.Monday,
		Available:  true,
		Window:     model.Window{StartMinute: 540, EndMinute: 720},
	})

	res, err := f.generator.Generate(context.Background(), Request{
		ServiceID:  "svc-1",
		ProviderID: "prov-2",
		From:       at(9, 0),
		To:         at(12, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range res.Slots {
		if s.ProviderID != "prov-2" {
			t.Fatalf("filter leaked slot for %s", s.ProviderID)
		}
	}
	if len(res.Slots) == 0 {
		t.Fatal("expected slots for the filtered provider")
	}
}

func TestGenerate_RequestErrors(t *testing.T) {
	f := newFixture(30 * time.Minute)
	f.directory.PutService(model.Service{ID: "svc-old", Name: "Retired", DurationMinutes: 60, Active: false})
	f.directory.PutProvider(model.Provider{ID: "prov-other", Name: "Dr. Max", Active: true, ServiceIDs: []string{"svc-old"}})
	ctx := context.Background()

	if _, err := f.generator.Generate(ctx, Request{ServiceID: "svc-1", From: at(12, 0), To: at(9, 0)}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("inverted range: err = %v", err)
	}
	if _, err := f.generator.Generate(ctx, Request{ServiceID: "svc-1"}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("zero range: err = %v", err)
	}
	if _, err := f.generator.Generate(ctx, Request{ServiceID: "nope", From: at(9, 0), To: at(12, 0)}); !storage.IsNotFound(err) {
		t.Fatalf("unknown service: err = %v", err)
	}
	if _, err := f.generator.Generate(ctx, Request{ServiceID: "svc-old", From: at(9, 0), To: at(12, 0)}); !errors.Is(err, ErrServiceInactive) {
		t.Fatalf("inactive service: err = %v", err)
	}
	if _, err := f.generator.Generate(ctx, Request{ServiceID: "svc-1", ProviderID: "prov-other", From: at(9, 0), To: at(12, 0)}); !errors.Is(err, ErrProviderMismatch) {
		t.Fatalf("provider mismatch: err = %v", err)
	}
	if _, err := f.generator.Generate(ctx, Request{ServiceID: "svc-1", ProviderID: "nope", From: at(9, 0), To: at(12, 0)}); !storage.IsNotFound(err) {
		t.Fatalf("unknown provider: err = %v", err)
	}
}

func TestGenerate_DeadlineTruncates(t *testing.T) {
	f := newFixture(30 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.generator.Generate(ctx, Request{
		ServiceID: "svc-1",
		From:      at(9, 0),
		To:        at(12, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Fatal("expired context must mark the result truncated")
	}
	if len(res.Slots) != 0 {
		t.Fatalf("no date was processed, got slots: %v", starts(res))
	}
}

func TestGenerate_MultiDayRange(t *testing.T) {
	f := newFixture(time.Hour)
	f.rules.PutRule(model.RecurringRule{
		ProviderID: "prov-1",
		Weekday:    time.Tuesday,
		Available:  true,
		Window:     model.Window{StartMinute: 540, EndMinute: 660}, // 09:00-11:00
	})

	res, err := f.generator.Generate(context.Background(), Request{
		ServiceID: "svc-1",
		From:      at(9, 0),
		To:        monday.AddDate(0, 0, 1).Add(12 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	tuesday9 := monday.AddDate(0, 0, 1).Add(9 * time.Hour)
	want := []time.Time{at(9, 0), at(10, 0), at(11, 0), tuesday9, tuesday9.Add(time.Hour)}
	got := starts(res)
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("slot[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
