package slotlock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const lockColumns = `id, field_id, user_id, date, start_time, expires_at, created_at`

func (r *repository) TryInsert(ctx context.Context, userID, fieldID int, date time.Time, startTime string, expiresAt time.Time) (*Lock, error) {
	var lock Lock
	err := r.db.GetContext(ctx, &lock, `
		INSERT INTO slot_locks (user_id, field_id, date, start_time, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (field_id, date, start_time) DO NOTHING
		RETURNING `+lockColumns+`
	`, userID, fieldID, date, startTime, expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *repository) FindActive(ctx context.Context, fieldID int, date time.Time, startTime string, now time.Time) (*Lock, error) {
	var lock Lock
	err := r.db.GetContext(ctx, &lock, `
		SELECT `+lockColumns+`
		FROM slot_locks
		WHERE field_id = $1 AND date = $2 AND start_time = $3 AND expires_at > $4
		ORDER BY created_at
		LIMIT 1
	`, fieldID, date, startTime, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *repository) DeleteExpiredForSlot(ctx context.Context, fieldID int, date time.Time, startTime string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM slot_locks
		WHERE field_id = $1 AND date = $2 AND start_time = $3 AND expires_at <= $4
	`, fieldID, date, startTime, now)
	return err
}

func (r *repository) DeleteForUser(ctx context.Context, userID, fieldID int, date time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM slot_locks
		WHERE user_id = $1 AND field_id = $2 AND date = $3
	`, userID, fieldID, date)
	return err
}

func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM slot_locks WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
