package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

const subscriptionColumns = `
	id, user_id, field_id, interval, day_of_week, day_of_month,
	start_time, end_time, time_slot, number_of_dogs, amount,
	start_date, status, stripe_subscription_id, cancel_at_period_end,
	payment_retry_count, next_retry_date, last_booking_date, created_at, updated_at`

func (r *repository) Create(ctx context.Context, s *Subscription) (*Subscription, error) {
	var out Subscription
	err := r.db.GetContext(ctx, &out, `
		INSERT INTO subscriptions (user_id, field_id, interval, day_of_week, day_of_month,
		                           start_time, end_time, time_slot, number_of_dogs, amount,
		                           start_date, status, stripe_subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+subscriptionColumns+`
	`, s.UserID, s.FieldID, s.Interval, s.DayOfWeek, s.DayOfMonth,
		s.StartTime, s.EndTime, s.TimeSlot, s.NumberOfDogs, s.Amount,
		s.StartDate, s.Status, s.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("subscription %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE stripe_subscription_id = $1
	`, stripeSubscriptionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("subscription %s not found", stripeSubscriptionID)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int) ([]Subscription, error) {
	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ListActiveHolds projects every non-canceled, non-cancel-pending
// subscription of the field as a recurring hold. past_due subscriptions keep
// their hold while retries run so the slot is not sold out from under a
// recovering customer. A cancel-at-period-end series stops projecting: its
// already-paid occurrences exist as bookings and guard their own dates.
func (r *repository) ListActiveHolds(ctx context.Context, fieldID int) ([]availability.RecurringHold, error) {
	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE field_id = $1
		  AND status != 'canceled'
		  AND cancel_at_period_end = FALSE
	`, fieldID)
	if err != nil {
		return nil, err
	}

	holds := make([]availability.RecurringHold, 0, len(subs))
	for i := range subs {
		holds = append(holds, subs[i].Hold())
	}
	return holds, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int, status Status) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) SetCancelAtPeriodEnd(ctx context.Context, id int, cancel bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET cancel_at_period_end = $1, updated_at = NOW()
		WHERE id = $2
	`, cancel, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) BumpRetry(ctx context.Context, id int, nextRetry time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET payment_retry_count = payment_retry_count + 1,
		    next_retry_date = $1,
		    status = 'past_due',
		    updated_at = NOW()
		WHERE id = $2
	`, nextRetry, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) ResetRetries(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET payment_retry_count = 0,
		    next_retry_date = NULL,
		    status = 'active',
		    updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) SetLastBookingDate(ctx context.Context, id int, date time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET last_booking_date = $1, updated_at = NOW()
		WHERE id = $2
	`, date, id)
	if err != nil {
		return err
	}
	return requireRow(result, id)
}

func (r *repository) ListPastDueReady(ctx context.Context, now time.Time) ([]Subscription, error) {
	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = 'past_due'
		  AND next_retry_date IS NOT NULL
		  AND next_retry_date <= $1
		ORDER BY next_retry_date
	`, now)
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ListActive returns the series the materialize sweep may extend. A
// cancel-at-period-end series is excluded so the sweep cannot book occurrences
// the customer will never be invoiced for.
func (r *repository) ListActive(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = 'active'
		  AND cancel_at_period_end = FALSE
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func requireRow(result sql.Result, id int) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("subscription %d not found", id)
	}
	return nil
}
