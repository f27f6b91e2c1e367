package payout

import (
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Payout is one transfer of accumulated booking earnings to a field owner's
// connected account. CoveredBookingIDs records which bookings' funds it
// carries so a later refund can find and cancel it.
type Payout struct {
	ID           int     `db:"id" json:"id"`
	FieldOwnerID int     `db:"field_owner_id" json:"field_owner_id"`
	Amount       float64 `db:"amount" json:"amount"`
	Status       Status  `db:"status" json:"status"`

	StripeTransferID *string `db:"stripe_transfer_id" json:"stripe_transfer_id,omitempty"`
	StripePayoutID   *string `db:"stripe_payout_id" json:"stripe_payout_id,omitempty"`

	CoveredBookingIDs pq.Int64Array `db:"covered_booking_ids" json:"covered_booking_ids"`
	FailureReason     *string       `db:"failure_reason" json:"failure_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
