package user

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

const userColumns = `id, name, email, role, commission_rate, stripe_account_id, created_at`

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %s not found", email)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) ListAdminIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM users WHERE role = 'ADMIN'
	`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) SetCommissionOverride(ctx context.Context, ownerID int, rate *float64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET commission_rate = $1
		WHERE id = $2 AND role = 'FIELD_OWNER'
	`, rate, ownerID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("field owner %d not found", ownerID)
	}
	return nil
}

func (r *repository) SetStripeAccount(ctx context.Context, ownerID int, accountID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET stripe_account_id = $1
		WHERE id = $2 AND role = 'FIELD_OWNER'
	`, accountID, ownerID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("field owner %d not found", ownerID)
	}
	return nil
}
