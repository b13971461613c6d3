package storage

import (
	"context"
	"time"

	"therapy-booking/internal/model"
	"therapy-booking/libs/db"
)

// AppointmentRepository persists appointments. The appointments table carries
// an exclusion constraint over (provider_id, tstzrange(start_time, end_time))
// restricted to active statuses, so an overlapping Insert or UpdateInterval
// is rejected by Postgres itself even when two writers raced past the
// application-level conflict check. That rejection comes back as ErrSlotTaken.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `
	id::text, client_id::text, provider_id::text, service_id::text,
	start_time, end_time, status, COALESCE(notes, ''), created_at, updated_at`

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	var a model.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id).Scan(
		&a.ID, &a.ClientID, &a.ProviderID, &a.ServiceID,
		&a.StartTime, &a.EndTime, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, mapNotFound(err)
	}
	return a, nil
}

// FindOverlapping returns the provider's active appointments whose half-open
// interval intersects [start, end). excludeID, when non-empty, omits the
// appointment being rescheduled so it cannot conflict with itself.
func (r *AppointmentRepository) FindOverlapping(ctx context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
			AND status IN ('scheduled', 'rescheduled')
			AND start_time < $3
			AND end_time > $2
			AND ($4 = '' OR id::text <> $4)
		ORDER BY start_time ASC
	`, providerID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *AppointmentRepository) Insert(ctx context.Context, a *model.Appointment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, client_id, provider_id, service_id, start_time, end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, a.ID, a.ClientID, a.ProviderID, a.ServiceID, a.StartTime, a.EndTime, a.Status, a.Notes).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return mapConflict(err)
	}
	return nil
}

// UpdateInterval and UpdateStatus only match rows still in an active status.
// The guard rides in the UPDATE itself, so a transition that committed a
// terminal status between the caller's read and this write makes the UPDATE
// match nothing instead of being overwritten.

func (r *AppointmentRepository) UpdateInterval(ctx context.Context, id string, start, end time.Time, status model.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
			end_time = $3,
			status = $4,
			updated_at = now()
		WHERE id = $1
			AND status IN ('scheduled', 'rescheduled')
	`, id, start, end, status)
	if err != nil {
		return mapConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissedUpdate(ctx, id)
	}
	return nil
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.Status, notes string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			notes = $3,
			updated_at = now()
		WHERE id = $1
			AND status IN ('scheduled', 'rescheduled')
	`, id, status, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissedUpdate(ctx, id)
	}
	return nil
}

// classifyMissedUpdate tells a missing row apart from one the status guard
// excluded. Statuses only ever move active to terminal, so a present row that
// a guarded UPDATE skipped is terminal.
func (r *AppointmentRepository) classifyMissedUpdate(ctx context.Context, id string) error {
	var status model.Status
	err := r.pool.QueryRow(ctx, `
		SELECT status FROM appointments WHERE id = $1
	`, id).Scan(&status)
	if err != nil {
		return mapNotFound(err)
	}
	if status.Terminal() {
		return ErrStatusTerminal
	}
	return ErrNotFound
}

func (r *AppointmentRepository) ListByProvider(ctx context.Context, providerID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, providerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAppointments(rows rowScanner) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID, &a.ClientID, &a.ProviderID, &a.ServiceID,
			&a.StartTime, &a.EndTime, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
