package availability

import (
	"context"
	"time"
)

// BookingSource supplies the hard-booking tier. Implemented by the booking
// repository.
type BookingSource interface {
	// ListActiveSlots returns booked slots for the field whose date falls in
	// [dayStart, dayEnd), excluding CANCELLED and COMPLETED bookings.
	ListActiveSlots(ctx context.Context, fieldID int, dayStart, dayEnd time.Time) ([]BookedSlot, error)
	// ExistsForSubscriptionOn reports whether the subscription already has a
	// concrete non-cancelled booking on that day. A materialized booking
	// supersedes the abstract recurring hold.
	ExistsForSubscriptionOn(ctx context.Context, subscriptionID int, dayStart, dayEnd time.Time) (bool, error)
}

// RecurringSource supplies the recurring-hold tier. Implemented by the
// subscription repository.
type RecurringSource interface {
	// ListActiveHolds returns holds for active, non-cancel-pending
	// subscriptions on the field.
	ListActiveHolds(ctx context.Context, fieldID int) ([]RecurringHold, error)
}

// LockSource supplies the soft-lock tier. Implemented by the slot lock
// service.
type LockSource interface {
	HeldByOther(ctx context.Context, userID, fieldID int, date time.Time, startTime string) (bool, error)
}
