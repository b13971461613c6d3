package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound signals that a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrSlotTaken signals that a write was rejected because the interval
	// overlaps an active appointment for the same provider. The Postgres
	// store raises it from the exclusion constraint, the in-memory store
	// from its per-provider serialization; either way the booking engine
	// reports it as a normal slot-unavailable outcome.
	ErrSlotTaken = errors.New("time slot already taken")

	// ErrStatusTerminal signals that a guarded write found the appointment
	// already in a terminal status. Both stores enforce the guard atomically
	// with the write, so a transition that raced with another writer cannot
	// overwrite cancelled, completed or no_show.
	ErrStatusTerminal = errors.New("appointment is in a terminal status")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsSlotTaken(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}

func IsStatusTerminal(err error) bool {
	return errors.Is(err, ErrStatusTerminal)
}

// exclusion_violation, raised by the appointments no-overlap constraint.
const pgExclusionViolation = "23P01"

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return ErrSlotTaken
	}
	return err
}
