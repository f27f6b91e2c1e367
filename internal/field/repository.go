package field

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const fieldColumns = `
	id, owner_id, name, city, description, operating_days, opening_time,
	closing_time, price_30min, price_1hr, price, max_dogs, amenities,
	is_approved, is_active, is_blocked, created_at`

func (r *repository) FindByID(ctx context.Context, id int) (*Field, error) {
	var f Field
	err := r.db.GetContext(ctx, &f, `
		SELECT `+fieldColumns+`
		FROM fields
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("field %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int) ([]Field, error) {
	var fields []Field
	err := r.db.SelectContext(ctx, &fields, `
		SELECT `+fieldColumns+`
		FROM fields
		WHERE owner_id = $1
		ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repository) ListAmenityLabels(ctx context.Context) ([]AmenityLabel, error) {
	var labels []AmenityLabel
	err := r.db.SelectContext(ctx, &labels, `
		SELECT name, label FROM amenity_labels ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return labels, nil
}
