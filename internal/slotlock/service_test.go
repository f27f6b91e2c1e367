package slotlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type MockLockRepo struct{ mock.Mock }

func (m *MockLockRepo) TryInsert(ctx context.Context, userID, fieldID int, date time.Time, startTime string, expiresAt time.Time) (*Lock, error) {
	args := m.Called(ctx, userID, fieldID, date, startTime, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Lock), args.Error(1)
}

func (m *MockLockRepo) FindActive(ctx context.Context, fieldID int, date time.Time, startTime string, now time.Time) (*Lock, error) {
	args := m.Called(ctx, fieldID, date, startTime, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Lock), args.Error(1)
}

func (m *MockLockRepo) DeleteExpiredForSlot(ctx context.Context, fieldID int, date time.Time, startTime string, now time.Time) error {
	return m.Called(ctx, fieldID, date, startTime, now).Error(0)
}

func (m *MockLockRepo) DeleteForUser(ctx context.Context, userID, fieldID int, date time.Time) error {
	return m.Called(ctx, userID, fieldID, date).Error(0)
}

func (m *MockLockRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

var testDate = time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC)

func TestAcquireSuccess(t *testing.T) {
	repo := new(MockLockRepo)
	repo.On("DeleteExpiredForSlot", mock.Anything, 3, testDate, "09:00", mock.Anything).Return(nil)
	repo.On("TryInsert", mock.Anything, 7, 3, testDate, "09:00", mock.Anything).
		Return(&Lock{ID: 1, UserID: 7, FieldID: 3}, nil)

	svc := NewService(repo)
	lock, err := svc.Acquire(context.Background(), 7, 3, testDate, "09:00", 0)

	require.NoError(t, err)
	assert.Equal(t, 7, lock.UserID)
	repo.AssertExpectations(t)
}

func TestAcquireConflictWithOtherHolder(t *testing.T) {
	repo := new(MockLockRepo)
	repo.On("DeleteExpiredForSlot", mock.Anything, 3, testDate, "09:00", mock.Anything).Return(nil)
	repo.On("TryInsert", mock.Anything, 8, 3, testDate, "09:00", mock.Anything).
		Return(nil, nil)
	repo.On("FindActive", mock.Anything, 3, testDate, "09:00", mock.Anything).
		Return(&Lock{ID: 1, UserID: 7}, nil)

	svc := NewService(repo)
	_, err := svc.Acquire(context.Background(), 8, 3, testDate, "09:00", time.Minute)

	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	// the reason must not leak the holder's identity
	assert.NotContains(t, err.Error(), "7")
}

func TestAcquireReentrantForSameUser(t *testing.T) {
	repo := new(MockLockRepo)
	repo.On("DeleteExpiredForSlot", mock.Anything, 3, testDate, "09:00", mock.Anything).Return(nil)
	repo.On("TryInsert", mock.Anything, 7, 3, testDate, "09:00", mock.Anything).
		Return(nil, nil)
	repo.On("FindActive", mock.Anything, 3, testDate, "09:00", mock.Anything).
		Return(&Lock{ID: 1, UserID: 7}, nil)

	svc := NewService(repo)
	lock, err := svc.Acquire(context.Background(), 7, 3, testDate, "09:00", time.Minute)

	require.NoError(t, err)
	assert.Equal(t, 1, lock.ID)
}

func TestHeldByOther(t *testing.T) {
	repo := new(MockLockRepo)
	repo.On("FindActive", mock.Anything, 3, testDate, "09:00", mock.Anything).
		Return(&Lock{ID: 1, UserID: 7}, nil)

	svc := NewService(repo)

	held, err := svc.HeldByOther(context.Background(), 8, 3, testDate, "09:00")
	require.NoError(t, err)
	assert.True(t, held)

	held, err = svc.HeldByOther(context.Background(), 7, 3, testDate, "09:00")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestCleanupExpired(t *testing.T) {
	repo := new(MockLockRepo)
	repo.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(4), nil)

	svc := NewService(repo)
	deleted, err := svc.CleanupExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
}
