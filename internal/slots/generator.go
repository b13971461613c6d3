package slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"therapy-booking/internal/availability"
	"therapy-booking/internal/model"
)

// DefaultStep is the slot enumeration granularity. A policy choice, not a
// protocol requirement; override it per Generator via NewGenerator.
const DefaultStep = 30 * time.Minute

var (
	// ErrInvalidRange rejects queries where the range is empty or inverted,
	// before any storage access.
	ErrInvalidRange = errors.New("start of range must be before its end")
	// ErrServiceInactive rejects slot queries for services that exist but are
	// no longer offered.
	ErrServiceInactive = errors.New("service is not active")
	// ErrProviderMismatch rejects a provider filter naming a provider that
	// does not offer the requested service.
	ErrProviderMismatch = errors.New("provider does not offer this service")
)

type Directory interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	ListProvidersForService(ctx context.Context, serviceID string) ([]model.Provider, error)
}

type Appointments interface {
	FindOverlapping(ctx context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error)
}

type Generator struct {
	directory    Directory
	resolver     *availability.Resolver
	appointments Appointments
	step         time.Duration
}

func NewGenerator(directory Directory, resolver *availability.Resolver, appointments Appointments, step time.Duration) *Generator {
	if step <= 0 {
		step = DefaultStep
	}
	return &Generator{
		directory:    directory,
		resolver:     resolver,
		appointments: appointments,
		step:         step,
	}
}

type Request struct {
	ServiceID  string
	ProviderID string // empty: any active provider offering the service
	From       time.Time
	To         time.Time
}

type Result struct {
	Slots []model.AvailableSlot
	// Truncated is set when the caller's deadline expired mid-generation.
	// Every slot present was fully validated; later dates were dropped whole.
	Truncated bool
}

// Generate enumerates the bookable slots for a service over [From, To].
// Slots are recomputed on every call from current availability and bookings;
// the result is ordered by start time, then provider name.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return Result{}, ErrInvalidRange
	}

	service, err := g.directory.GetService(ctx, req.ServiceID)
	if err != nil {
		return Result{}, fmt.Errorf("service %q: %w", req.ServiceID, err)
	}
	if !service.Active {
		return Result{}, ErrServiceInactive
	}

	providers, err := g.candidateProviders(ctx, req, service.ID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	seen := make(map[slotKey]struct{})
	for _, provider := range providers {
		truncated, err := g.providerSlots(ctx, provider, service, req, seen, &res.Slots)
		if err != nil {
			return Result{}, err
		}
		if truncated {
			res.Truncated = true
			break
		}
	}

	sort.Slice(res.Slots, func(i, j int) bool {
		if !res.Slots[i].StartTime.Equal(res.Slots[j].StartTime) {
			return res.Slots[i].StartTime.Before(res.Slots[j].StartTime)
		}
		return res.Slots[i].ProviderName < res.Slots[j].ProviderName
	})
	return res, nil
}

func (g *Generator) candidateProviders(ctx context.Context, req Request, serviceID string) ([]model.Provider, error) {
	if req.ProviderID != "" {
		provider, err := g.directory.GetProvider(ctx, req.ProviderID)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", req.ProviderID, err)
		}
		if !provider.Active || !provider.Offers(serviceID) {
			return nil, ErrProviderMismatch
		}
		return []model.Provider{provider}, nil
	}
	return g.directory.ListProvidersForService(ctx, serviceID)
}

// providerSlots walks each calendar date in the query range for one provider.
// It checks the deadline before each date so an expired context drops the
// unfinished date entirely rather than emitting a half-validated slot.
func (g *Generator) providerSlots(ctx context.Context, provider model.Provider, service model.Service, req Request, seen map[slotKey]struct{}, out *[]model.AvailableSlot) (bool, error) {
	lastDay := availability.Midnight(req.To)
	for day := availability.Midnight(req.From); !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		if ctx.Err() != nil {
			return true, nil
		}

		win, ok, err := g.resolver.Resolve(ctx, provider.ID, day)
		if err != nil {
			return false, fmt.Errorf("resolve availability: %w", err)
		}
		if !ok {
			continue
		}

		booked, err := g.appointments.FindOverlapping(ctx, provider.ID, win.Start, win.End, "")
		if err != nil {
			return false, fmt.Errorf("load booked intervals: %w", err)
		}
		busy := make([]availability.Interval, 0, len(booked))
		for _, a := range booked {
			busy = append(busy, availability.Interval{Start: a.StartTime, End: a.EndTime})
		}

		for _, start := range availability.SlotStarts(win, service.Duration(), g.step, busy, req.From, req.To) {
			key := slotKey{providerID: provider.ID, start: start.UnixNano()}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			*out = append(*out, model.AvailableSlot{
				ProviderID:      provider.ID,
				ProviderName:    provider.Name,
				ServiceID:       service.ID,
				StartTime:       start,
				EndTime:         start.Add(service.Duration()),
				DurationMinutes: service.DurationMinutes,
			})
		}
	}
	return false, nil
}

type slotKey struct {
	providerID string
	start      int64
}
