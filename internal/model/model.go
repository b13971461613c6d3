package model

import "time"

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
	StatusNoShow      Status = "no_show"
)

// Active reports whether the appointment still occupies its interval.
// Only active appointments block other bookings.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

// Terminal reports whether no further lifecycle transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

type Provider struct {
	ID         string
	Name       string
	Active     bool
	ServiceIDs []string
}

// Offers reports whether the provider offers the given service.
func (p Provider) Offers(serviceID string) bool {
	for _, id := range p.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

type Service struct {
	ID              string
	Name            string
	DurationMinutes int
	Active          bool
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Client struct {
	ID   string
	Name string
}

type Appointment struct {
	ID         string
	ClientID   string
	ProviderID string
	ServiceID  string
	StartTime  time.Time
	EndTime    time.Time
	Status     Status
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AvailableSlot is a bookable interval computed on demand. It is never persisted.
type AvailableSlot struct {
	ProviderID      string
	ProviderName    string
	ServiceID       string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
}
