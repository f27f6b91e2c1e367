package slotlock

import "time"

// Lock is an advisory reservation-in-progress marker held while a checkout is
// in flight. It is not durable business state; reads always filter out
// expired rows and a background sweep deletes them.
type Lock struct {
	ID        int       `db:"id" json:"id"`
	FieldID   int       `db:"field_id" json:"field_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Date      time.Time `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
