package booking

import "therapy-booking/internal/model"

// ErrorKind classifies the domain-level negatives. Storage failures are not a
// kind; they propagate as plain errors so callers can retry or alert.
type ErrorKind string

const (
	// KindValidation — malformed or inconsistent input, rejected before any write.
	KindValidation ErrorKind = "validation"
	// KindNotFound — a referenced provider, service, client, or appointment is absent.
	KindNotFound ErrorKind = "not_found"
	// KindSlotUnavailable — the requested interval conflicts with an active
	// appointment. A normal outcome: the caller should re-query for slots.
	KindSlotUnavailable ErrorKind = "slot_unavailable"
	// KindInvalidTransition — the lifecycle rule forbids the transition.
	KindInvalidTransition ErrorKind = "invalid_transition"
)

// Result is the structured outcome of a lifecycle operation. Exactly one of
// OK or ErrorKind is meaningful.
type Result struct {
	OK            bool
	AppointmentID string
	Appointment   model.Appointment
	ErrorKind     ErrorKind
	Message       string
}

func failure(kind ErrorKind, msg string) Result {
	return Result{ErrorKind: kind, Message: msg}
}

func success(a model.Appointment) Result {
	return Result{OK: true, AppointmentID: a.ID, Appointment: a}
}
