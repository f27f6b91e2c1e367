package slotlock

import (
	"context"
	"time"
)

type Repository interface {
	// TryInsert inserts a lock row, relying on the unique index over
	// (field_id, date, start_time) for mutual exclusion. It returns nil when
	// another row already holds the slot.
	TryInsert(ctx context.Context, userID, fieldID int, date time.Time, startTime string, expiresAt time.Time) (*Lock, error)
	FindActive(ctx context.Context, fieldID int, date time.Time, startTime string, now time.Time) (*Lock, error)
	DeleteExpiredForSlot(ctx context.Context, fieldID int, date time.Time, startTime string, now time.Time) error
	DeleteForUser(ctx context.Context, userID, fieldID int, date time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
