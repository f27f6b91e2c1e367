package settings

import "time"

// PayoutReleaseSchedule controls when a paid, confirmed booking becomes
// eligible for payout.
type PayoutReleaseSchedule string

const (
	// ReleaseAfterCancellationWindow releases once the cancellation window
	// before the booking's start time has elapsed.
	ReleaseAfterCancellationWindow PayoutReleaseSchedule = "after_cancellation_window"
	// ReleaseOnWeekend releases only on the configured weekend days.
	ReleaseOnWeekend PayoutReleaseSchedule = "on_weekend"
)

type Settings struct {
	ID                      int                   `db:"id" json:"id"`
	DefaultCommissionRate   float64               `db:"default_commission_rate" json:"default_commission_rate"`
	CancellationWindowHours int                   `db:"cancellation_window_hours" json:"cancellation_window_hours"`
	MaxAdvanceBookingDays   int                   `db:"max_advance_booking_days" json:"max_advance_booking_days"`
	PayoutReleaseSchedule   PayoutReleaseSchedule `db:"payout_release_schedule" json:"payout_release_schedule"`
	UpdatedAt               time.Time             `db:"updated_at" json:"updated_at"`
}

// WeekendReleaseDays are the days payouts go out under ReleaseOnWeekend.
var WeekendReleaseDays = []time.Weekday{time.Saturday, time.Sunday}
