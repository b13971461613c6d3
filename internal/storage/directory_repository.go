package storage

import (
	"context"

	"therapy-booking/internal/model"
	"therapy-booking/libs/db"
)

// DirectoryRepository reads the provider/service/client directory. The booking
// engine only looks entities up; directory management belongs to admin tooling.
type DirectoryRepository struct {
	pool *db.Pool
}

func NewDirectoryRepository(pool *db.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) GetProvider(ctx context.Context, id string) (model.Provider, error) {
	var p model.Provider
	err := r.pool.QueryRow(ctx, `
		SELECT p.id::text, p.name, p.is_active,
			COALESCE(array_agg(ps.service_id::text) FILTER (WHERE ps.service_id IS NOT NULL), '{}')
		FROM providers p
		LEFT JOIN provider_services ps ON ps.provider_id = p.id
		WHERE p.id = $1
		GROUP BY p.id
	`, id).Scan(&p.ID, &p.Name, &p.Active, &p.ServiceIDs)
	if err != nil {
		return model.Provider{}, mapNotFound(err)
	}
	return p, nil
}

func (r *DirectoryRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, duration_minutes, is_active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.Active)
	if err != nil {
		return model.Service{}, mapNotFound(err)
	}
	return s, nil
}

func (r *DirectoryRepository) GetClient(ctx context.Context, id string) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name
		FROM clients
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return model.Client{}, mapNotFound(err)
	}
	return c, nil
}

// ListProvidersForService returns the active providers offering the service,
// ordered by name for deterministic slot output downstream.
func (r *DirectoryRepository) ListProvidersForService(ctx context.Context, serviceID string) ([]model.Provider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id::text, p.name, p.is_active,
			COALESCE(array_agg(ps2.service_id::text) FILTER (WHERE ps2.service_id IS NOT NULL), '{}')
		FROM providers p
		JOIN provider_services ps ON ps.provider_id = p.id AND ps.service_id = $1
		LEFT JOIN provider_services ps2 ON ps2.provider_id = p.id
		WHERE p.is_active
		GROUP BY p.id
		ORDER BY p.name ASC
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.ServiceIDs); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
