package notify

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Well-known notification types. Clients key display templates off these.
const (
	TypeBookingConfirmed     = "booking_confirmed"
	TypeBookingCancelled     = "booking_cancelled"
	TypeBookingReceived      = "booking_received"
	TypeRefundIssued         = "refund_issued"
	TypePayoutSent           = "payout_sent"
	TypePayoutFailed         = "payout_failed"
	TypePayoutHeld           = "payout_held"
	TypeSubscriptionPastDue  = "subscription_past_due"
	TypeSubscriptionCanceled = "subscription_canceled"
)

type Notification struct {
	ID      int    `db:"id" json:"id"`
	UserID  int    `db:"user_id" json:"user_id"`
	Type    string `db:"type" json:"type"`
	Title   string `db:"title" json:"title"`
	Message string `db:"message" json:"message"`
	// Data carries type-specific context (booking id, amounts) as JSON.
	Data   types.JSONText `db:"data" json:"data,omitempty"`
	ReadAt *time.Time     `db:"read_at" json:"read_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
