package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"therapy-booking/internal/model"
	"therapy-booking/libs/db"
)

// AvailabilityRepository reads recurring weekday rules and date overrides.
// Rules are maintained by provider-management workflows; the engine never
// writes them.
type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) GetOverrideForDate(ctx context.Context, providerID string, date time.Time) (model.DateOverride, bool, error) {
	o := model.DateOverride{ProviderID: providerID}
	var day time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT override_date, is_available, start_minute, end_minute,
			break_start_minute, break_end_minute, COALESCE(notes, '')
		FROM availability_overrides
		WHERE provider_id = $1 AND override_date = $2::date
	`, providerID, date).Scan(
		&day,
		&o.Available,
		&o.Window.StartMinute,
		&o.Window.EndMinute,
		&o.Window.BreakStartMinute,
		&o.Window.BreakEndMinute,
		&o.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DateOverride{}, false, nil
		}
		return model.DateOverride{}, false, err
	}
	o.Date = day
	return o, true, nil
}

func (r *AvailabilityRepository) GetRuleForWeekday(ctx context.Context, providerID string, weekday time.Weekday) (model.RecurringRule, bool, error) {
	rule := model.RecurringRule{ProviderID: providerID, Weekday: weekday}
	err := r.pool.QueryRow(ctx, `
		SELECT is_available, start_minute, end_minute,
			break_start_minute, break_end_minute, COALESCE(notes, '')
		FROM availability_rules
		WHERE provider_id = $1 AND weekday = $2
	`, providerID, int(weekday)).Scan(
		&rule.Available,
		&rule.Window.StartMinute,
		&rule.Window.EndMinute,
		&rule.Window.BreakStartMinute,
		&rule.Window.BreakEndMinute,
		&rule.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RecurringRule{}, false, nil
		}
		return model.RecurringRule{}, false, err
	}
	return rule, true, nil
}
