package booking

import (
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/timeslot"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentRefunded  PaymentStatus = "REFUNDED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// PayoutStatus is null until the booking enters the payout pipeline.
type PayoutStatus string

const (
	PayoutPending        PayoutStatus = "PENDING"
	PayoutPendingAccount PayoutStatus = "PENDING_ACCOUNT"
	PayoutProcessing     PayoutStatus = "PROCESSING"
	PayoutCompleted      PayoutStatus = "COMPLETED"
	PayoutFailed         PayoutStatus = "FAILED"
	PayoutHeld           PayoutStatus = "HELD"
	PayoutRefunded       PayoutStatus = "REFUNDED"
	PayoutCancelled      PayoutStatus = "CANCELLED"
)

type Booking struct {
	ID int `db:"id" json:"id"`
	// BookingID is the human-readable sequential reference, e.g. "FB-000042".
	BookingID string `db:"booking_id" json:"booking_id"`

	FieldID int `db:"field_id" json:"field_id"`
	UserID  int `db:"user_id" json:"user_id"`

	// Date is the calendar day of the booking, stored at UTC midnight.
	Date         time.Time `db:"date" json:"date"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	NumberOfDogs int       `db:"number_of_dogs" json:"number_of_dogs"`
	TotalPrice   float64   `db:"total_price" json:"total_price"`

	Status           Status        `db:"status" json:"status"`
	PaymentStatus    PaymentStatus `db:"payment_status" json:"payment_status"`
	PayoutStatus     *PayoutStatus `db:"payout_status" json:"payout_status,omitempty"`
	PayoutHeldReason *string       `db:"payout_held_reason" json:"payout_held_reason,omitempty"`

	PlatformCommission *float64 `db:"platform_commission" json:"platform_commission,omitempty"`
	FieldOwnerAmount   *float64 `db:"field_owner_amount" json:"field_owner_amount,omitempty"`

	// SubscriptionID back-references the recurring series that materialized
	// this booking, when there is one.
	SubscriptionID *int `db:"subscription_id" json:"subscription_id,omitempty"`

	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StartInstant resolves the booking's date plus start time into an absolute
// UTC instant.
func (b *Booking) StartInstant() (time.Time, error) {
	minutes, err := timeslot.Parse(b.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	day := time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
	return day.Add(time.Duration(minutes) * time.Minute), nil
}

// CanTransition reports whether the primary status may move from -> to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// Cancellable reports whether the booking may still be cancelled.
func (b *Booking) Cancellable() bool {
	return CanTransition(b.Status, StatusCancelled)
}

// PayoutStatusIs reports whether the payout status is set and equals s.
func (b *Booking) PayoutStatusIs(s PayoutStatus) bool {
	return b.PayoutStatus != nil && *b.PayoutStatus == s
}

// PaidOut reports whether the field owner has already received this
// booking's funds.
func (b *Booking) PaidOut() bool {
	return b.PayoutStatusIs(PayoutCompleted)
}
