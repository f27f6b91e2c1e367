package transaction

import "time"

type Type string

const (
	TypePayment Type = "PAYMENT"
	TypeRefund  Type = "REFUND"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// LifecycleStage tracks where a booking's money is in the charge → settle →
// payout pipeline. Stages only ever move forward; each advance appends a new
// row rather than rewriting history.
type LifecycleStage string

const (
	StageFundsPending    LifecycleStage = "FUNDS_PENDING"
	StageFundsAvailable  LifecycleStage = "FUNDS_AVAILABLE"
	StagePayoutInitiated LifecycleStage = "PAYOUT_INITIATED"
	StagePayoutCompleted LifecycleStage = "PAYOUT_COMPLETED"
	StageRefunded        LifecycleStage = "REFUNDED"
)

// Transaction is one append-only ledger record of a monetary event tied to a
// booking. Rows are immutable once COMPLETED.
type Transaction struct {
	ID             int            `db:"id" json:"id"`
	BookingID      int            `db:"booking_id" json:"booking_id"`
	Type           Type           `db:"type" json:"type"`
	Amount         float64        `db:"amount" json:"amount"`
	Status         Status         `db:"status" json:"status"`
	LifecycleStage LifecycleStage `db:"lifecycle_stage" json:"lifecycle_stage"`

	StripeChargeID   *string `db:"stripe_charge_id" json:"stripe_charge_id,omitempty"`
	StripeTransferID *string `db:"stripe_transfer_id" json:"stripe_transfer_id,omitempty"`
	StripePayoutID   *string `db:"stripe_payout_id" json:"stripe_payout_id,omitempty"`
	StripeRefundID   *string `db:"stripe_refund_id" json:"stripe_refund_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
