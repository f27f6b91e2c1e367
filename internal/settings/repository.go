package settings

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
)

// Defaults seeds the settings row on first read, before an admin has saved
// anything. Values come from the environment-level configuration.
type Defaults struct {
	CommissionRate          float64
	CancellationWindowHours int
	MaxAdvanceBookingDays   int
	ReleaseSchedule         PayoutReleaseSchedule
}

func (d Defaults) withFallbacks() Defaults {
	if d.CommissionRate <= 0 {
		d.CommissionRate = 20
	}
	if d.CancellationWindowHours <= 0 {
		d.CancellationWindowHours = 24
	}
	if d.MaxAdvanceBookingDays <= 0 {
		d.MaxAdvanceBookingDays = 30
	}
	if d.ReleaseSchedule != ReleaseAfterCancellationWindow && d.ReleaseSchedule != ReleaseOnWeekend {
		d.ReleaseSchedule = ReleaseAfterCancellationWindow
	}
	return d
}

type repository struct {
	db       *sqlx.DB
	defaults Defaults
}

func NewRepository(db *sqlx.DB, defaults Defaults) Repository {
	return &repository{db: db, defaults: defaults.withFallbacks()}
}

// Get returns the single system settings row, creating it with defaults the
// first time it is asked for.
func (r *repository) Get(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.db.GetContext(ctx, &s, `
		SELECT id, default_commission_rate, cancellation_window_hours,
		       max_advance_booking_days, payout_release_schedule, updated_at
		FROM system_settings
		ORDER BY id
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return r.createDefaults(ctx)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) createDefaults(ctx context.Context) (*Settings, error) {
	var s Settings
	err := r.db.GetContext(ctx, &s, `
		INSERT INTO system_settings (default_commission_rate, cancellation_window_hours,
		                             max_advance_booking_days, payout_release_schedule)
		VALUES ($1, $2, $3, $4)
		RETURNING id, default_commission_rate, cancellation_window_hours,
		          max_advance_booking_days, payout_release_schedule, updated_at
	`, r.defaults.CommissionRate, r.defaults.CancellationWindowHours,
		r.defaults.MaxAdvanceBookingDays, r.defaults.ReleaseSchedule)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ValidateRate enforces the admin-configuration rule: whole percentage
// between 1 and 50 inclusive.
func ValidateRate(rate float64) error {
	if rate != math.Trunc(rate) {
		return apperr.Validation("commission rate must be a whole percentage, got %v", rate)
	}
	if rate < 1 || rate > 50 {
		return apperr.Validation("commission rate must be between 1 and 50, got %v", rate)
	}
	return nil
}

func (r *repository) UpdateDefaultCommissionRate(ctx context.Context, rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE system_settings
		SET default_commission_rate = $1, updated_at = NOW()
	`, rate)
	return err
}

func (r *repository) UpdateCancellationWindow(ctx context.Context, hours int) error {
	if hours <= 0 {
		return apperr.Validation("cancellation window must be positive, got %d", hours)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE system_settings
		SET cancellation_window_hours = $1, updated_at = NOW()
	`, hours)
	return err
}

func (r *repository) UpdatePayoutReleaseSchedule(ctx context.Context, schedule PayoutReleaseSchedule) error {
	if schedule != ReleaseAfterCancellationWindow && schedule != ReleaseOnWeekend {
		return apperr.Validation("unknown payout release schedule %q", schedule)
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE system_settings
		SET payout_release_schedule = $1, updated_at = NOW()
	`, schedule)
	return err
}
