package availability

import "time"

type ConflictType string

const (
	ConflictBooking   ConflictType = "booking"
	ConflictRecurring ConflictType = "recurring"
	ConflictLock      ConflictType = "lock"
)

// Result is the outcome of an availability check. When Available is false,
// Reason explains which conflict was hit first.
type Result struct {
	Available    bool         `json:"available"`
	Reason       string       `json:"reason,omitempty"`
	ConflictType ConflictType `json:"conflict_type,omitempty"`
}

// Interval is a recurring subscription's cadence.
type Interval string

const (
	IntervalEveryday Interval = "everyday"
	IntervalWeekly   Interval = "weekly"
	IntervalMonthly  Interval = "monthly"
)

// BookedSlot is the slice of a booking the resolver compares against.
type BookedSlot struct {
	BookingID      int    `db:"id"`
	StartTime      string `db:"start_time"`
	EndTime        string `db:"end_time"`
	SubscriptionID *int   `db:"subscription_id"`
}

// RecurringHold is the abstract reservation an active subscription projects
// onto every date its cadence lands on.
type RecurringHold struct {
	SubscriptionID int
	Interval       Interval
	DayOfWeek      time.Weekday // weekly anchor
	DayOfMonth     int          // monthly anchor
	StartTime      string
	EndTime        string
	TimeSlot       string
	StartDate      time.Time
}

// ReservedDate is a projected future hold with no concrete booking yet,
// surfaced to calendar UIs as "reserved but not yet booked".
type ReservedDate struct {
	Date           time.Time `json:"date"`
	TimeSlot       string    `json:"time_slot"`
	SubscriptionID int       `json:"subscription_id"`
	Interval       Interval  `json:"interval"`
}

// RecurringConflictReport lists every date a proposed recurring series would
// collide with an existing concrete booking.
type RecurringConflictReport struct {
	HasConflict      bool        `json:"has_conflict"`
	ConflictingDates []time.Time `json:"conflicting_dates"`
}

// CheckRequest asks whether one slot is free.
type CheckRequest struct {
	FieldID   int
	UserID    int
	Date      time.Time
	StartTime string
	EndTime   string

	// ExcludeBookingID ignores one booking, for reschedule checks.
	ExcludeBookingID *int
	// ExcludeSubscriptionID ignores one subscription's recurring hold, used
	// when materializing that subscription's own booking.
	ExcludeSubscriptionID *int
	// CheckLocks additionally consults in-flight checkout holds by other
	// users. Enabled at checkout, skipped for passive calendar reads.
	CheckLocks bool
}
