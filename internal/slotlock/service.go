package slotlock

import (
	"context"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
)

const DefaultTTL = 10 * time.Minute

type Service interface {
	// Acquire takes the checkout hold for (field, date, startTime). Exactly
	// one concurrent caller wins; losers get a Conflict that says the slot is
	// held without identifying the holder.
	Acquire(ctx context.Context, userID, fieldID int, date time.Time, startTime string, ttl time.Duration) (*Lock, error)
	// Release drops all of the user's locks for that field and date, on
	// checkout success, abort, or explicit cancel.
	Release(ctx context.Context, userID, fieldID int, date time.Time) error
	// HeldByOther reports whether someone other than userID holds a live lock
	// for the slot.
	HeldByOther(ctx context.Context, userID, fieldID int, date time.Time, startTime string) (bool, error)
	// CleanupExpired removes rows past their TTL. Advisory only: every read
	// path already filters by expiry.
	CleanupExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Acquire(ctx context.Context, userID, fieldID int, date time.Time, startTime string, ttl time.Duration) (*Lock, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()

	// Clear any expired row occupying the unique slot key, then race on the
	// insert itself.
	if err := s.repo.DeleteExpiredForSlot(ctx, fieldID, date, startTime, now); err != nil {
		return nil, err
	}

	lock, err := s.repo.TryInsert(ctx, userID, fieldID, date, startTime, now.Add(ttl))
	if err != nil {
		return nil, err
	}
	if lock != nil {
		return lock, nil
	}

	holder, err := s.repo.FindActive(ctx, fieldID, date, startTime, now)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.UserID == userID {
		// Re-entrant acquire during the same checkout keeps the current hold.
		return holder, nil
	}

	metrics.SlotLockContentionTotal.Inc()
	return nil, apperr.Conflict("slot is currently held by another checkout")
}

func (s *service) Release(ctx context.Context, userID, fieldID int, date time.Time) error {
	return s.repo.DeleteForUser(ctx, userID, fieldID, date)
}

func (s *service) HeldByOther(ctx context.Context, userID, fieldID int, date time.Time, startTime string) (bool, error) {
	holder, err := s.repo.FindActive(ctx, fieldID, date, startTime, s.now())
	if err != nil {
		return false, err
	}
	return holder != nil && holder.UserID != userID, nil
}

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Debug("expired slot locks removed", "count", deleted)
	}
	return deleted, nil
}
