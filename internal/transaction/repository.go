package transaction

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const txColumns = `
	id, booking_id, type, amount, status, lifecycle_stage,
	stripe_charge_id, stripe_transfer_id, stripe_payout_id, stripe_refund_id,
	created_at`

func (r *repository) Append(ctx context.Context, tx *Transaction) (*Transaction, error) {
	var out Transaction
	err := r.db.GetContext(ctx, &out, `
		INSERT INTO transactions (booking_id, type, amount, status, lifecycle_stage,
		                          stripe_charge_id, stripe_transfer_id, stripe_payout_id, stripe_refund_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+txColumns+`
	`, tx.BookingID, tx.Type, tx.Amount, tx.Status, tx.LifecycleStage,
		tx.StripeChargeID, tx.StripeTransferID, tx.StripePayoutID, tx.StripeRefundID)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repository) ListByBooking(ctx context.Context, bookingID int) ([]Transaction, error) {
	var txs []Transaction
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE booking_id = $1
		ORDER BY created_at, id
	`, bookingID)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *repository) LatestPaymentForBooking(ctx context.Context, bookingID int) (*Transaction, error) {
	var tx Transaction
	err := r.db.GetContext(ctx, &tx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE booking_id = $1 AND type = 'PAYMENT'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
