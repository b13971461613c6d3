package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"therapy-booking/internal/model"
	"therapy-booking/internal/storage"
)

// Directory resolves entity references. The engine never navigates object
// graphs; every relation is an id plus a lookup.
type Directory interface {
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	GetClient(ctx context.Context, id string) (model.Client, error)
}

// AppointmentStore persists appointments. Insert and UpdateInterval must
// reject an interval overlapping an active appointment for the same provider
// atomically with the write, returning storage.ErrSlotTaken; the Postgres
// store does this with an exclusion constraint, the memory store with
// per-provider serialization. UpdateInterval and UpdateStatus must likewise
// reject a row already in a terminal status atomically with the write,
// returning storage.ErrStatusTerminal. The engine's checks before the write
// are a fast path, not the guarantee.
type AppointmentStore interface {
	Get(ctx context.Context, id string) (model.Appointment, error)
	FindOverlapping(ctx context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error)
	Insert(ctx context.Context, a *model.Appointment) error
	UpdateInterval(ctx context.Context, id string, start, end time.Time, status model.Status) error
	UpdateStatus(ctx context.Context, id string, status model.Status, notes string) error
}

// Engine drives the appointment lifecycle:
//
//	scheduled -> rescheduled -> ... -> cancelled | completed | no_show
//
// scheduled and rescheduled are active (they block the interval); cancelled,
// completed and no_show are terminal. Reschedule mutates the interval in
// place and keeps the record's identity; it does not spawn a new record.
type Engine struct {
	directory    Directory
	appointments AppointmentStore
	logger       *slog.Logger
	now          func() time.Time
}

func NewEngine(directory Directory, appointments AppointmentStore, logger *slog.Logger) *Engine {
	return &Engine{
		directory:    directory,
		appointments: appointments,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HasConflict reports whether [start, end) overlaps an active appointment for
// the provider. excludeID omits the appointment being rescheduled from the
// scan. Each call re-reads current state; nothing is cached.
func (e *Engine) HasConflict(ctx context.Context, providerID string, start, end time.Time, excludeID string) (bool, error) {
	overlapping, err := e.appointments.FindOverlapping(ctx, providerID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("find overlapping: %w", err)
	}
	return len(overlapping) > 0, nil
}

type CreateParams struct {
	ClientID   string
	ProviderID string
	ServiceID  string
	StartTime  time.Time
	Notes      string
}

func (e *Engine) Create(ctx context.Context, p CreateParams) (Result, error) {
	p.ClientID = strings.TrimSpace(p.ClientID)
	p.ProviderID = strings.TrimSpace(p.ProviderID)
	p.ServiceID = strings.TrimSpace(p.ServiceID)
	if p.ClientID == "" || p.ProviderID == "" || p.ServiceID == "" {
		return failure(KindValidation, "client_id, provider_id and service_id are required"), nil
	}
	if p.StartTime.IsZero() {
		return failure(KindValidation, "start_time is required"), nil
	}

	service, err := e.directory.GetService(ctx, p.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return failure(KindNotFound, "service not found"), nil
		}
		return Result{}, err
	}
	if !service.Active {
		return failure(KindValidation, "service is not active"), nil
	}

	provider, err := e.directory.GetProvider(ctx, p.ProviderID)
	if err != nil {
		if storage.IsNotFound(err) {
			return failure(KindNotFound, "provider not found"), nil
		}
		return Result{}, err
	}
	if !provider.Active {
		return failure(KindValidation, "provider is not active"), nil
	}
	if !provider.Offers(p.ServiceID) {
		return failure(KindValidation, "provider does not offer this service"), nil
	}

	if _, err := e.directory.GetClient(ctx, p.ClientID); err != nil {
		if storage.IsNotFound(err) {
			return failure(KindNotFound, "client not found"), nil
		}
		return Result{}, err
	}

	start := p.StartTime
	end := start.Add(service.Duration())

	conflict, err := e.HasConflict(ctx, p.ProviderID, start, end, "")
	if err != nil {
		return Result{}, err
	}
	if conflict {
		return failure(KindSlotUnavailable, "time slot is no longer available"), nil
	}

	appt := model.Appointment{
		ID:         uuid.NewString(),
		ClientID:   p.ClientID,
		ProviderID: p.ProviderID,
		ServiceID:  p.ServiceID,
		StartTime:  start,
		EndTime:    end,
		Status:     model.StatusScheduled,
		Notes:      p.Notes,
	}
	if err := e.appointments.Insert(ctx, &appt); err != nil {
		if storage.IsSlotTaken(err) {
			// Lost the race between the conflict check and the write.
			return failure(KindSlotUnavailable, "time slot is no longer available"), nil
		}
		return Result{}, fmt.Errorf("insert appointment: %w", err)
	}

	e.logger.Info("appointment scheduled",
		"appointment_id", appt.ID,
		"provider_id", appt.ProviderID,
		"start_time", appt.StartTime.Format(time.RFC3339),
	)
	return success(appt), nil
}

// Reschedule moves an active appointment to a new start, preserving its
// original duration. On conflict the original record is left untouched.
func (e *Engine) Reschedule(ctx context.Context, appointmentID string, newStart time.Time) (Result, error) {
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return failure(KindValidation, "appointment_id is required"), nil
	}
	if newStart.IsZero() {
		return failure(KindValidation, "new_start_time is required"), nil
	}

	appt, err := e.appointments.Get(ctx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return failure(KindNotFound, "appointment not found"), nil
		}
		return Result{}, err
	}
	if appt.Status.Terminal() {
		return failure(KindInvalidTransition, fmt.Sprintf("cannot reschedule a %s appointment", appt.Status)), nil
	}

	duration := appt.EndTime.Sub(appt.StartTime)
	newEnd := newStart.Add(duration)

	conflict, err := e.HasConflict(ctx, appt.ProviderID, newStart, newEnd, appt.ID)
	if err != nil {
		return Result{}, err
	}
	if conflict {
		return failure(KindSlotUnavailable, "new time slot is not available"), nil
	}

	if err := e.appointments.UpdateInterval(ctx, appt.ID, newStart, newEnd, model.StatusRescheduled); err != nil {
		if storage.IsSlotTaken(err) {
			return failure(KindSlotUnavailable, "new time slot is not available"), nil
		}
		if storage.IsStatusTerminal(err) {
			// A terminal transition committed after our read; the store's
			// guard kept this write from resurrecting the appointment.
			return failure(KindInvalidTransition, "appointment is no longer active"), nil
		}
		if storage.IsNotFound(err) {
			return failure(KindNotFound, "appointment not found"), nil
		}
		return Result{}, fmt.Errorf("update interval: %w", err)
	}

	appt.StartTime = newStart
	appt.EndTime = newEnd
	appt.Status = model.StatusRescheduled
	appt.UpdatedAt = e.now()

	e.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"provider_id", appt.ProviderID,
		"start_time", newStart.Format(time.RFC3339),
	)
	return success(appt), nil
}

// Cancel moves the appointment to cancelled, appending the reason to its
// notes. Terminal appointments, completed ones included, stay untouched.
func (e *Engine) Cancel(ctx context.Context, appointmentID, reason string) (Result, error) {
	return e.transition(ctx, appointmentID, model.StatusCancelled, strings.TrimSpace(reason))
}

func (e *Engine) Complete(ctx context.Context, appointmentID string) (Result, error) {
	return e.transition(ctx, appointmentID, model.StatusCompleted, "")
}

func (e *Engine) MarkNoShow(ctx context.Context, appointmentID string) (Result, error) {
	return e.transition(ctx, appointmentID, model.StatusNoShow, "")
}

func (e *Engine) transition(ctx context.Context, appointmentID string, to model.Status, reason string) (Result, error) {
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return failure(KindValidation, "appointment_id is required"), nil
	}

	appt, err := e.appointments.Get(ctx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return failure(KindNotFound, "appointment not found"), nil
		}
		return Result{}, err
	}
	// Re-invoking any transition on a terminal appointment is a no-op
	// failure, never a silent success and never a second side effect.
	if appt.Status.Terminal() {
		return failure(KindInvalidTransition, fmt.Sprintf("appointment is already %s", appt.Status)), nil
	}

	notes := appt.Notes
	if reason != "" {
		if notes != "" {
			notes += "\n"
		}
		notes += "cancelled: " + reason
	}

	if err := e.appointments.UpdateStatus(ctx, appt.ID, to, notes); err != nil {
		if storage.IsStatusTerminal(err) {
			return failure(KindInvalidTransition, "appointment is no longer active"), nil
		}
		if storage.IsNotFound(err) {
			return failure(KindNotFound, "appointment not found"), nil
		}
		return Result{}, fmt.Errorf("update status: %w", err)
	}

	appt.Status = to
	appt.Notes = notes
	appt.UpdatedAt = e.now()

	e.logger.Info("appointment "+string(to),
		"appointment_id", appt.ID,
		"provider_id", appt.ProviderID,
	)
	return success(appt), nil
}
