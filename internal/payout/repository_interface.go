package payout

import (
	"context"

	"github.com/lib/pq"

	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
)

type Repository interface {
	Create(ctx context.Context, p *Payout) (*Payout, error)
	FindByID(ctx context.Context, id int) (*Payout, error)
	ListByOwner(ctx context.Context, fieldOwnerID int) ([]Payout, error)
	// CoveredBookings loads the bookings whose funds a payout carries, for
	// attributing the payout amount back to individual bookings.
	CoveredBookings(ctx context.Context, ids pq.Int64Array) ([]booking.Booking, error)
	MarkPaid(ctx context.Context, id int, transferID, payoutID string) error
	MarkFailed(ctx context.Context, id int, reason string) error
	// CancelCovering cancels every non-terminal payout that carries the given
	// booking's funds, returning how many were cancelled.
	CancelCovering(ctx context.Context, bookingID int) (int64, error)
}
