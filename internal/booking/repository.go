package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
	"github.com/vinender/fieldsy-backend-sub004/internal/db"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

const bookingColumns = `
	id, booking_id, field_id, user_id, date, start_time, end_time,
	number_of_dogs, total_price, status, payment_status, payout_status,
	payout_held_reason, platform_commission, field_owner_amount,
	subscription_id, cancellation_reason, cancelled_at, created_at, updated_at`

const uniqueViolation = "23505"

func (r *repository) Create(ctx context.Context, b *Booking) (*Booking, error) {
	seq, err := db.NextCounter(ctx, r.db, "booking_id")
	if err != nil {
		return nil, err
	}
	ref := fmt.Sprintf("FB-%06d", seq)

	var out Booking
	err = r.db.GetContext(ctx, &out, `
		INSERT INTO bookings (booking_id, field_id, user_id, date, start_time, end_time,
		                      number_of_dogs, total_price, status, payment_status,
		                      platform_commission, field_owner_amount, subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+bookingColumns+`
	`, ref, b.FieldID, b.UserID, b.Date, b.StartTime, b.EndTime,
		b.NumberOfDogs, b.TotalPrice, b.Status, b.PaymentStatus,
		b.PlatformCommission, b.FieldOwnerAmount, b.SubscriptionID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, apperr.Conflict("slot was booked by a concurrent checkout")
		}
		return nil, err
	}
	return &out, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("booking %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindByBookingID(ctx context.Context, bookingID string) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("booking %s not found", bookingID)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListActiveSlots backs the availability resolver's hard-booking tier.
func (r *repository) ListActiveSlots(ctx context.Context, fieldID int, dayStart, dayEnd time.Time) ([]availability.BookedSlot, error) {
	var slots []availability.BookedSlot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT id, start_time, end_time, subscription_id
		FROM bookings
		WHERE field_id = $1
		  AND date >= $2 AND date < $3
		  AND status NOT IN ('CANCELLED', 'COMPLETED')
	`, fieldID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repository) ExistsForSubscriptionOn(ctx context.Context, subscriptionID int, dayStart, dayEnd time.Time) (bool, error) {
	return db.Exists(ctx, r.db, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE subscription_id = $1
			  AND date >= $2 AND date < $3
			  AND status != 'CANCELLED'
		)
	`, subscriptionID, dayStart, dayEnd)
}

func (r *repository) UpdateStatus(ctx context.Context, id int, status Status) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id int, status PaymentStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) UpdatePayoutStatus(ctx context.Context, id int, status PayoutStatus, heldReason *string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET payout_status = $1, payout_held_reason = $2, updated_at = NOW()
		WHERE id = $3
	`, status, heldReason, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) SetCommissionSplit(ctx context.Context, id int, platformCommission, fieldOwnerAmount float64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET platform_commission = $1, field_owner_amount = $2, updated_at = NOW()
		WHERE id = $3
	`, platformCommission, fieldOwnerAmount, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) MarkCancelled(ctx context.Context, id int, reason string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'CANCELLED', cancellation_reason = $1, cancelled_at = $2, updated_at = NOW()
		WHERE id = $3 AND status IN ('PENDING', 'CONFIRMED')
	`, reason, at, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("booking %d cannot be cancelled in its current state", id)
	}
	return nil
}

func (r *repository) ListAwaitingPayout(ctx context.Context) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE payment_status = 'PAID'
		  AND status IN ('CONFIRMED', 'COMPLETED')
		  AND (payout_status IS NULL OR payout_status = 'PENDING')
		ORDER BY date, id
	`)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) CompletePast(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'COMPLETED', updated_at = NOW()
		WHERE status = 'CONFIRMED' AND date < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *repository) ListFutureBySubscription(ctx context.Context, subscriptionID int, after time.Time) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE subscription_id = $1
		  AND date >= $2
		  AND status IN ('PENDING', 'CONFIRMED')
		ORDER BY date
	`, subscriptionID, after)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) CancelFutureBySubscription(ctx context.Context, subscriptionID int, after time.Time, reason string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'CANCELLED', cancellation_reason = $1, cancelled_at = NOW(), updated_at = NOW()
		WHERE subscription_id = $2
		  AND date >= $3
		  AND status IN ('PENDING', 'CONFIRMED')
	`, reason, subscriptionID, after)
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
		return apperr.NotFound("booking %d not found", id)
	}
	return nil
}
