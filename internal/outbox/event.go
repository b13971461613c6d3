package outbox

// Event is the domain event envelope written to the outbox table. The Kafka
// topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the booking engine, one per lifecycle transition.
const (
	EventAppointmentScheduled   = "booking.appointment.scheduled.v1"
	EventAppointmentRescheduled = "booking.appointment.rescheduled.v1"
	EventAppointmentCancelled   = "booking.appointment.cancelled.v1"
	EventAppointmentCompleted   = "booking.appointment.completed.v1"
	EventAppointmentNoShow      = "booking.appointment.no_show.v1"
)
