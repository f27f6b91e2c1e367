package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

var bookingRowColumns = []string{
	"id", "booking_id", "field_id", "user_id", "date", "start_time", "end_time",
	"number_of_dogs", "total_price", "status", "payment_status", "payout_status",
	"payout_held_reason", "platform_commission", "field_owner_amount",
	"subscription_id", "cancellation_reason", "cancelled_at", "created_at", "updated_at",
}

func bookingRow(id int, ref string, date time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(bookingRowColumns).
		AddRow(id, ref, 3, 7, date, "10:00", "11:00",
			2, 40.0, "CONFIRMED", "PAID", nil,
			nil, nil, nil,
			nil, nil, nil, time.Now(), time.Now())
}

func TestCreateAssignsSequentialReference(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	date := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO counters").
		WithArgs("booking_id").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(42))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(bookingRow(1, "FB-000042", date))

	created, err := repo.Create(context.Background(), &Booking{
		FieldID: 3, UserID: 7, Date: date,
		StartTime: "10:00", EndTime: "11:00",
		NumberOfDogs: 2, TotalPrice: 40,
		Status: StatusConfirmed, PaymentStatus: PaymentPaid,
	})
	require.NoError(t, err)
	assert.Equal(t, "FB-000042", created.BookingID)
	assert.Equal(t, StatusConfirmed, created.Status)
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	mock.ExpectQuery("INSERT INTO counters").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(43))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), &Booking{
		Status: StatusConfirmed, PaymentStatus: PaymentPaid,
	})
	assert.True(t, apperr.IsConflict(err))
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM bookings").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	_, err := repo.FindByID(context.Background(), 99)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListActiveSlotsExcludesTerminalStatuses(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	date := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("status NOT IN ('CANCELLED', 'COMPLETED')")).
		WithArgs(3, date, date.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "end_time", "subscription_id"}).
			AddRow(1, "10:00", "11:00", nil))

	slots, err := repo.ListActiveSlots(context.Background(), 3, date, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "10:00", slots[0].StartTime)
}

func TestUpdateStatusNotFound(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	mock.ExpectExec("UPDATE bookings").
		WithArgs(StatusCompleted, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 99, StatusCompleted)
	assert.True(t, apperr.IsNotFound(err))
}

func TestMarkCancelledRefusesTerminalStates(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	at := time.Now()
	mock.ExpectExec("UPDATE bookings").
		WithArgs("changed my mind", at, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCancelled(context.Background(), 5, "changed my mind", at)
	assert.True(t, apperr.IsConflict(err))
}

func TestCompletePast(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	cutoff := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'COMPLETED'")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.CompletePast(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestCancelFutureBySubscription(t *testing.T) {
	repo, mock, closeFn := setupMock(t)
	defer closeFn()

	after := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'CANCELLED'")).
		WithArgs("subscription payment failed", 5, after).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.CancelFutureBySubscription(context.Background(), 5, after, "subscription payment failed")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
