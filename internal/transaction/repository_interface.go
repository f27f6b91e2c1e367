package transaction

import "context"

type Repository interface {
	// Append records a new ledger event. The ledger is append-only; there is
	// deliberately no update or delete.
	Append(ctx context.Context, tx *Transaction) (*Transaction, error)
	ListByBooking(ctx context.Context, bookingID int) ([]Transaction, error)
	// LatestPaymentForBooking returns the most recent PAYMENT row, which
	// carries the charge id the payout engine settles against.
	LatestPaymentForBooking(ctx context.Context, bookingID int) (*Transaction, error)
}
