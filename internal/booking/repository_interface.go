package booking

import (
	"context"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
)

// Repository persists bookings. It also implements the availability
// resolver's BookingSource so the same SQL backs both paths.
type Repository interface {
	availability.BookingSource

	// Create inserts the booking, assigning the sequential human-readable
	// reference. A unique-index collision on (field, date, start) surfaces as
	// a Conflict error.
	Create(ctx context.Context, b *Booking) (*Booking, error)
	FindByID(ctx context.Context, id int) (*Booking, error)
	FindByBookingID(ctx context.Context, bookingID string) (*Booking, error)
	ListByUser(ctx context.Context, userID int) ([]Booking, error)

	UpdateStatus(ctx context.Context, id int, status Status) error
	UpdatePaymentStatus(ctx context.Context, id int, status PaymentStatus) error
	// UpdatePayoutStatus sets both the payout status and the held reason;
	// pass a nil reason to clear it.
	UpdatePayoutStatus(ctx context.Context, id int, status PayoutStatus, heldReason *string) error
	SetCommissionSplit(ctx context.Context, id int, platformCommission, fieldOwnerAmount float64) error
	MarkCancelled(ctx context.Context, id int, reason string, at time.Time) error

	// ListAwaitingPayout returns paid, confirmed-or-completed bookings whose
	// payout is unset or deferred PENDING, for the payout sweep.
	ListAwaitingPayout(ctx context.Context) ([]Booking, error)
	// CompletePast moves CONFIRMED bookings whose day has passed to
	// COMPLETED, returning how many changed.
	CompletePast(ctx context.Context, before time.Time) (int64, error)

	ListFutureBySubscription(ctx context.Context, subscriptionID int, after time.Time) ([]Booking, error)
	// CancelFutureBySubscription cancels not-yet-started bookings of a
	// subscription, returning how many were cancelled.
	CancelFutureBySubscription(ctx context.Context, subscriptionID int, after time.Time, reason string) (int64, error)
}
