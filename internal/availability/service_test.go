package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type MockBookingSource struct{ mock.Mock }

func (m *MockBookingSource) ListActiveSlots(ctx context.Context, fieldID int, dayStart, dayEnd time.Time) ([]BookedSlot, error) {
	args := m.Called(ctx, fieldID, dayStart, dayEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookedSlot), args.Error(1)
}

func (m *MockBookingSource) ExistsForSubscriptionOn(ctx context.Context, subscriptionID int, dayStart, dayEnd time.Time) (bool, error) {
	args := m.Called(ctx, subscriptionID, dayStart, dayEnd)
	return args.Bool(0), args.Error(1)
}

type MockRecurringSource struct{ mock.Mock }

func (m *MockRecurringSource) ListActiveHolds(ctx context.Context, fieldID int) ([]RecurringHold, error) {
	args := m.Called(ctx, fieldID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RecurringHold), args.Error(1)
}

type MockLockSource struct{ mock.Mock }

func (m *MockLockSource) HeldByOther(ctx context.Context, userID, fieldID int, date time.Time, startTime string) (bool, error) {
	args := m.Called(ctx, userID, fieldID, date, startTime)
	return args.Bool(0), args.Error(1)
}

var saturday = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

func newRequest() CheckRequest {
	return CheckRequest{
		FieldID:   3,
		UserID:    7,
		Date:      saturday,
		StartTime: "10:00",
		EndTime:   "11:00",
	}
}

func TestAvailableWhenNoConflicts(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).Return([]BookedSlot{}, nil)
	recurring.On("ListActiveHolds", mock.Anything, 3).Return([]RecurringHold{}, nil)

	svc := NewService(bookings, recurring, nil)
	res, err := svc.IsAvailable(context.Background(), newRequest())

	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestBookingConflictShortCircuits(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).
		Return([]BookedSlot{{BookingID: 9, StartTime: "10:30", EndTime: "11:30"}}, nil)

	svc := NewService(bookings, recurring, nil)
	res, err := svc.IsAvailable(context.Background(), newRequest())

	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, ConflictBooking, res.ConflictType)
	assert.Contains(t, res.Reason, "10:30")
	// recurring tier never consulted
	recurring.AssertNotCalled(t, "ListActiveHolds", mock.Anything, mock.Anything)
}

func TestBoundaryTouchIsNotAConflict(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).
		Return([]BookedSlot{{BookingID: 9, StartTime: "09:00", EndTime: "10:00"}}, nil)
	recurring.On("ListActiveHolds", mock.Anything, 3).Return([]RecurringHold{}, nil)

	svc := NewService(bookings, recurring, nil)
	res, err := svc.IsAvailable(context.Background(), newRequest())

	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestExcludedBookingIsIgnored(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).
		Return([]BookedSlot{{BookingID: 9, StartTime: "10:00", EndTime: "11:00"}}, nil)
	recurring.On("ListActiveHolds", mock.Anything, 3).Return([]RecurringHold{}, nil)

	req := newRequest()
	exclude := 9
	req.ExcludeBookingID = &exclude

	svc := NewService(bookings, recurring, nil)
	res, err := svc.IsAvailable(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestRecurringHoldConflicts(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).Return([]BookedSlot{}, nil)
	recurring.On("ListActiveHolds", mock.Anything, 3).Return([]RecurringHold{{
		SubscriptionID: 5,
		Interval:       IntervalWeekly,
		DayOfWeek:      time.Saturday,
		StartTime:      "10:00",
		EndTime:        "11:00",
		StartDate:      saturday.AddDate(0, 0, -7),
	}}, nil)
	bookings.On("ExistsForSubscriptionOn", mock.Anything, 5, mock.Anything, mock.Anything).Return(false, nil)

	svc := NewService(bookings, recurring, nil)
	res, err := svc.IsAvailable(context.Background(), newRequest())

	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, ConflictRecurring, res.ConflictType)
}

func TestMaterializedBookingSupersedesHold(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).Return([]BookedSlot{}, nil)
	recurring.On("ListActiveHolds", mock.Anything, 3).Return([]RecurringHold{{
		SubscriptionID: 5,
		Interval:       IntervalEveryday,
		StartTime:      "10:00",
		EndTime:        "11:00",
		StartDate:      saturday.AddDate(0, 0, -7),
	}}, nil)
	// the hold has already been turned into a real booking for this day,
	// which tier 1 would have reported had it overlapped
	bookings.On("ExistsForSubscriptionOn", mock.Anything, 5, mock.Anything, mock.Anything).Return(true, nil)

	svc := NewService(bookings, recurring, nil)
	res, err := svc.IsAvailable(context.Background(), newRequest())

	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestLockConflict(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	locks := new(MockLockSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).Return([]BookedSlot{}, nil)
	recurring.On("ListActiveHolds", mock.Anything, 3).Return([]RecurringHold{}, nil)
	locks.On("HeldByOther", mock.Anything, 7, 3, saturday, "10:00").Return(true, nil)

	req := newRequest()
	req.CheckLocks = true

	svc := NewService(bookings, recurring, locks)
	res, err := svc.IsAvailable(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, ConflictLock, res.ConflictType)
}

func TestIsAvailableRejectsMalformedTimes(t *testing.T) {
	svc := NewService(new(MockBookingSource), new(MockRecurringSource), nil)

	req := newRequest()
	req.StartTime = "whenever"

	_, err := svc.IsAvailable(context.Background(), req)
	assert.Error(t, err)
}

func TestRecurringReservedDates(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)
	recurring.On("ListActiveHolds", mock.Anything, 3).Return([]RecurringHold{{
		SubscriptionID: 5,
		Interval:       IntervalWeekly,
		DayOfWeek:      time.Saturday,
		TimeSlot:       "10:00 - 11:00",
		StartDate:      saturday,
	}}, nil)
	// first Saturday already materialized, second not
	first, _ := DayRange(saturday)
	bookings.On("ExistsForSubscriptionOn", mock.Anything, 5, first, mock.Anything).Return(true, nil).Once()
	bookings.On("ExistsForSubscriptionOn", mock.Anything, 5, mock.Anything, mock.Anything).Return(false, nil)

	svc := NewService(bookings, recurring, nil)
	reserved, err := svc.RecurringReservedDates(context.Background(), 3, saturday, saturday.AddDate(0, 0, 13))

	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, saturday.AddDate(0, 0, 7), reserved[0].Date)
	assert.Equal(t, "10:00 - 11:00", reserved[0].TimeSlot)
}

func TestCheckRecurringConflicts(t *testing.T) {
	bookings := new(MockBookingSource)
	recurring := new(MockRecurringSource)

	conflictDay := saturday.AddDate(0, 0, 7)
	conflictStart, conflictEnd := DayRange(conflictDay)
	bookings.On("ListActiveSlots", mock.Anything, 3, conflictStart, conflictEnd).
		Return([]BookedSlot{{BookingID: 11, StartTime: "10:30", EndTime: "11:30"}}, nil)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).
		Return([]BookedSlot{}, nil)

	svc := NewService(bookings, recurring, nil)
	report, err := svc.CheckRecurringConflicts(context.Background(), 3, saturday, "10:00", "11:00", IntervalWeekly, 30)

	require.NoError(t, err)
	assert.True(t, report.HasConflict)
	require.Len(t, report.ConflictingDates, 1)
	assert.Equal(t, conflictDay, report.ConflictingDates[0])
}

func TestCheckRecurringConflictsNone(t *testing.T) {
	bookings := new(MockBookingSource)
	bookings.On("ListActiveSlots", mock.Anything, 3, mock.Anything, mock.Anything).
		Return([]BookedSlot{}, nil)

	svc := NewService(bookings, new(MockRecurringSource), nil)
	report, err := svc.CheckRecurringConflicts(context.Background(), 3, saturday, "10:00", "11:00", IntervalEveryday, 0)

	require.NoError(t, err)
	assert.False(t, report.HasConflict)
	assert.Empty(t, report.ConflictingDates)
}
