package subscription

import (
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// MaxPaymentRetries is how many failed invoice payments a subscription
// survives before it is cancelled.
const MaxPaymentRetries = 3

// Subscription is a recurring slot reservation billed through the processor.
// It projects an abstract hold onto every date its cadence lands on; concrete
// bookings are only written once the period's invoice is paid.
type Subscription struct {
	ID      int `db:"id" json:"id"`
	UserID  int `db:"user_id" json:"user_id"`
	FieldID int `db:"field_id" json:"field_id"`

	Interval availability.Interval `db:"interval" json:"interval"`
	// DayOfWeek anchors weekly cadences (0 = Sunday); DayOfMonth anchors
	// monthly ones. The unused anchor is zero.
	DayOfWeek  int `db:"day_of_week" json:"day_of_week"`
	DayOfMonth int `db:"day_of_month" json:"day_of_month"`

	StartTime    string  `db:"start_time" json:"start_time"`
	EndTime      string  `db:"end_time" json:"end_time"`
	TimeSlot     string  `db:"time_slot" json:"time_slot"`
	NumberOfDogs int     `db:"number_of_dogs" json:"number_of_dogs"`
	Amount       float64 `db:"amount" json:"amount"`

	StartDate time.Time `db:"start_date" json:"start_date"`
	Status    Status    `db:"status" json:"status"`

	StripeSubscriptionID string `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	CancelAtPeriodEnd    bool   `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	PaymentRetryCount int        `db:"payment_retry_count" json:"payment_retry_count"`
	NextRetryDate     *time.Time `db:"next_retry_date" json:"next_retry_date,omitempty"`
	LastBookingDate   *time.Time `db:"last_booking_date" json:"last_booking_date,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Hold is the reservation this subscription projects into the availability
// resolver.
func (s *Subscription) Hold() availability.RecurringHold {
	return availability.RecurringHold{
		SubscriptionID: s.ID,
		Interval:       s.Interval,
		DayOfWeek:      time.Weekday(s.DayOfWeek),
		DayOfMonth:     s.DayOfMonth,
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		TimeSlot:       s.TimeSlot,
		StartDate:      s.StartDate,
	}
}
