package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RiderLocationRepository is a PostgreSQL implementation of
// repository.RiderLocationRepository. The table holds exactly one current
// row per rider; every ping overwrites it in place.
type RiderLocationRepository struct {
	q Querier
}

// NewRiderLocationRepository creates a new PostgreSQL location repository.
func NewRiderLocationRepository(db *sql.DB) *RiderLocationRepository {
	return &RiderLocationRepository{q: db}
}

// Upsert writes the rider's current position. Last write wins: a ping with
// an older timestamp still overwrites, matching the reference behavior.
func (r *RiderLocationRepository) Upsert(ctx context.Context, riderID string, loc domain.RiderLocation) error {
	query := `
		INSERT INTO rider_locations (rider_id, lat, lng, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (rider_id) DO UPDATE
		SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.ExecContext(ctx, query, riderID, loc.Lat, loc.Lng, loc.UpdatedAt)
	return err
}

// Get retrieves the rider's current position.
func (r *RiderLocationRepository) Get(ctx context.Context, riderID string) (*domain.RiderLocation, error) {
	var loc domain.RiderLocation
	err := r.q.QueryRowContext(ctx,
		`SELECT lat, lng, updated_at FROM rider_locations WHERE rider_id = $1`,
		riderID,
	).Scan(&loc.Lat, &loc.Lng, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &loc, nil
}
