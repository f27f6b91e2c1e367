package payout

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

const payoutColumns = `
	id, field_owner_id, amount, status, stripe_transfer_id, stripe_payout_id,
	covered_booking_ids, failure_reason, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Payout) (*Payout, error) {
	var out Payout
	err := r.db.GetContext(ctx, &out, `
		INSERT INTO payouts (field_owner_id, amount, status, covered_booking_ids)
		VALUES ($1, $2, $3, $4)
		RETURNING `+payoutColumns+`
	`, p.FieldOwnerID, p.Amount, p.Status, p.CoveredBookingIDs)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*Payout, error) {
	var p Payout
	err := r.db.GetContext(ctx, &p, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("payout %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListByOwner(ctx context.Context, fieldOwnerID int) ([]Payout, error) {
	var payouts []Payout
	err := r.db.SelectContext(ctx, &payouts, `
		SELECT `+payoutColumns+`
		FROM payouts
		WHERE field_owner_id = $1
		ORDER BY created_at DESC
	`, fieldOwnerID)
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) CoveredBookings(ctx context.Context, ids pq.Int64Array) ([]booking.Booking, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []booking.Booking
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, booking_id, field_id, user_id, date, start_time, end_time,
		       number_of_dogs, total_price, status, payment_status, payout_status,
		       payout_held_reason, platform_commission, field_owner_amount,
		       subscription_id, cancellation_reason, cancelled_at, created_at, updated_at
		FROM bookings
		WHERE id = ANY($1)
		ORDER BY date, start_time
	`, ids)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkPaid(ctx context.Context, id int, transferID, payoutID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payouts
		SET status = 'paid', stripe_transfer_id = $1, stripe_payout_id = $2, updated_at = NOW()
		WHERE id = $3
	`, transferID, payoutID, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) MarkFailed(ctx context.Context, id int, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payouts
		SET status = 'failed', failure_reason = $1, updated_at = NOW()
		WHERE id = $2
	`, reason, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) CancelCovering(ctx context.Context, bookingID int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payouts
		SET status = 'canceled', updated_at = NOW()
		WHERE $1 = ANY(covered_booking_ids)
		  AND status IN ('pending', 'processing')
	`, bookingID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func requireRow(result sql.Result, id int) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("payout %d not found", id)
	}
	return nil
}
