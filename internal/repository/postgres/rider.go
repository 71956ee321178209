package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RiderRepository is a PostgreSQL implementation of repository.RiderRepository.
type RiderRepository struct {
	q Querier
}

// NewRiderRepository creates a new PostgreSQL rider repository.
func NewRiderRepository(db *sql.DB) *RiderRepository {
	return &RiderRepository{q: db}
}

// Create adds a new rider.
func (r *RiderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	query := `
		INSERT INTO riders (id, name, phone, photo_url, rating, stock, online, shift_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		rider.ID,
		rider.Name,
		rider.Phone,
		rider.PhotoURL,
		rider.Rating,
		rider.Stock,
		rider.Online,
		rider.ShiftActive,
	)

	return err
}

// selectRider joins the single current-location row when present.
const selectRider = `
	SELECT r.id, r.name, r.phone, r.photo_url, r.rating, r.stock, r.online, r.shift_active,
	       l.lat, l.lng, l.updated_at
	FROM riders r
	LEFT JOIN rider_locations l ON l.rider_id = r.id
`

// GetByID retrieves a rider by ID.
func (r *RiderRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	row := r.q.QueryRowContext(ctx, selectRider+` WHERE r.id = $1`, id)

	rider, err := scanRider(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return rider, nil
}

// GetByPhone retrieves a rider by phone number.
func (r *RiderRepository) GetByPhone(ctx context.Context, phone string) (*domain.Rider, error) {
	row := r.q.QueryRowContext(ctx, selectRider+` WHERE r.phone = $1`, phone)

	rider, err := scanRider(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return rider, nil
}

// GetAll retrieves all riders.
func (r *RiderRepository) GetAll(ctx context.Context) ([]*domain.Rider, error) {
	return r.list(ctx, selectRider+` ORDER BY r.name`)
}

// ListAvailable retrieves the matcher's candidate set.
func (r *RiderRepository) ListAvailable(ctx context.Context) ([]*domain.Rider, error) {
	return r.list(ctx, selectRider+` WHERE r.online OR r.shift_active`)
}

func (r *RiderRepository) list(ctx context.Context, query string) ([]*domain.Rider, error) {
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var riders []*domain.Rider
	for rows.Next() {
		rider, err := scanRider(rows)
		if err != nil {
			return nil, err
		}
		riders = append(riders, rider)
	}

	return riders, rows.Err()
}

// SetFlags updates the online / shift flags of a rider.
func (r *RiderRepository) SetFlags(ctx context.Context, id string, online, shiftActive bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE riders SET online = $2, shift_active = $3 WHERE id = $1`,
		id, online, shiftActive,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanRider(row rowScanner) (*domain.Rider, error) {
	var (
		rider     domain.Rider
		lat       sql.NullFloat64
		lng       sql.NullFloat64
		updatedAt sql.NullTime
	)

	err := row.Scan(
		&rider.ID,
		&rider.Name,
		&rider.Phone,
		&rider.PhotoURL,
		&rider.Rating,
		&rider.Stock,
		&rider.Online,
		&rider.ShiftActive,
		&lat,
		&lng,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		rider.Location = &domain.RiderLocation{
			Lat:       lat.Float64,
			Lng:       lng.Float64,
			UpdatedAt: updatedAt.Time,
		}
	}

	return &rider, nil
}
