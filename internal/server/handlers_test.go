package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/auth"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/config"
	"github.com/vinender/fieldsy-backend-sub004/internal/notify"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/refund"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

const testSecret = "test-secret"

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, req booking.CreateRequest) (*booking.Booking, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) MaterializeRecurring(ctx context.Context, req booking.RecurringCreateRequest) (*booking.Booking, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, id int) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetByReference(ctx context.Context, bookingID string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListUserBookings(ctx context.Context, userID int) ([]booking.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockBookingService) Transition(ctx context.Context, id int, to booking.Status) (*booking.Booking, error) {
	args := m.Called(ctx, id, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) CompletePastSweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookingService) CancelFutureForSubscription(ctx context.Context, subscriptionID int, reason string) (int64, error) {
	args := m.Called(ctx, subscriptionID, reason)
	return args.Get(0).(int64), args.Error(1)
}

type MockRefundEngine struct {
	mock.Mock
}

func (m *MockRefundEngine) CancelBooking(ctx context.Context, bookingID int, reason string) (*refund.CancelResult, error) {
	args := m.Called(ctx, bookingID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.CancelResult), args.Error(1)
}

func (m *MockRefundEngine) Preview(ctx context.Context, bookingID int) (*refund.CancelResult, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refund.CancelResult), args.Error(1)
}

type MockPayoutEngine struct {
	mock.Mock
}

func (m *MockPayoutEngine) ProcessBookingPayout(ctx context.Context, bookingID int) (*payout.Payout, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Payout), args.Error(1)
}

func (m *MockPayoutEngine) Sweep(ctx context.Context) (*payout.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.SweepReport), args.Error(1)
}

type MockPayoutStore struct {
	mock.Mock
}

func (m *MockPayoutStore) Create(ctx context.Context, p *payout.Payout) (*payout.Payout, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Payout), args.Error(1)
}

func (m *MockPayoutStore) FindByID(ctx context.Context, id int) (*payout.Payout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Payout), args.Error(1)
}

func (m *MockPayoutStore) ListByOwner(ctx context.Context, fieldOwnerID int) ([]payout.Payout, error) {
	args := m.Called(ctx, fieldOwnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payout.Payout), args.Error(1)
}

func (m *MockPayoutStore) CoveredBookings(ctx context.Context, ids pq.Int64Array) ([]booking.Booking, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Booking), args.Error(1)
}

func (m *MockPayoutStore) MarkPaid(ctx context.Context, id int, transferID, payoutID string) error {
	return m.Called(ctx, id, transferID, payoutID).Error(0)
}

func (m *MockPayoutStore) MarkFailed(ctx context.Context, id int, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockPayoutStore) CancelCovering(ctx context.Context, bookingID int) (int64, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Insert(ctx context.Context, n *notify.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepo) ListByUser(ctx context.Context, userID int, limit int) ([]notify.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notify.Notification), args.Error(1)
}

func (m *MockNotificationRepo) MarkRead(ctx context.Context, userID, notificationID int) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

type testMocks struct {
	bookings      *MockBookingService
	refunds       *MockRefundEngine
	payouts       *MockPayoutEngine
	payoutStore   *MockPayoutStore
	notifications *MockNotificationRepo
}

func newTestServer() (*Server, *testMocks) {
	gin.SetMode(gin.TestMode)

	m := &testMocks{
		bookings:      new(MockBookingService),
		refunds:       new(MockRefundEngine),
		payouts:       new(MockPayoutEngine),
		payoutStore:   new(MockPayoutStore),
		notifications: new(MockNotificationRepo),
	}
	srv := New(Deps{
		Config:        &config.Config{Port: "0", JWTSecret: testSecret},
		Bookings:      m.bookings,
		Refunds:       m.refunds,
		Payouts:       m.payouts,
		PayoutStore:   m.payoutStore,
		Notifications: m.notifications,
	})
	return srv, m
}

func bearerFor(t *testing.T, userID int, role user.Role) string {
	t.Helper()
	token, _, err := auth.GenerateTokens(userID, "someone@example.com", string(role), testSecret, testSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	w := doJSON(srv, "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListMyBookings(t *testing.T) {
	srv, m := newTestServer()
	m.bookings.On("ListUserBookings", mock.Anything, 7).
		Return([]booking.Booking{{ID: 1, BookingID: "FB-000001", UserID: 7}}, nil)

	w := doJSON(srv, "GET", "/api/v1/bookings", bearerFor(t, 7, user.RoleDogOwner), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "FB-000001")
	m.bookings.AssertExpectations(t)
}

func TestListMyBookings_Unauthenticated(t *testing.T) {
	srv, _ := newTestServer()

	w := doJSON(srv, "GET", "/api/v1/bookings", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBooking_ForbiddenForOtherUser(t *testing.T) {
	srv, m := newTestServer()
	m.bookings.On("GetBooking", mock.Anything, 9).
		Return(&booking.Booking{ID: 9, UserID: 42}, nil)

	w := doJSON(srv, "GET", "/api/v1/bookings/9", bearerFor(t, 7, user.RoleDogOwner), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetBooking_NotFound(t *testing.T) {
	srv, m := newTestServer()
	m.bookings.On("GetBooking", mock.Anything, 9).
		Return(nil, apperr.NotFound("booking 9 not found"))

	w := doJSON(srv, "GET", "/api/v1/bookings/9", bearerFor(t, 7, user.RoleDogOwner), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBooking_OverridesUserID(t *testing.T) {
	srv, m := newTestServer()
	m.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req booking.CreateRequest) bool {
		return req.UserID == 7 && req.FieldID == 3
	})).Return(&booking.Booking{ID: 1, BookingID: "FB-000001", UserID: 7, FieldID: 3}, nil)

	w := doJSON(srv, "POST", "/api/v1/bookings", bearerFor(t, 7, user.RoleDogOwner), gin.H{
		"field_id":       3,
		"user_id":        999,
		"date":           "2025-06-14T00:00:00Z",
		"start_time":     "8:00AM",
		"end_time":       "9:00AM",
		"number_of_dogs": 2,
		"charge_id":      "ch_1",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	m.bookings.AssertExpectations(t)
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	srv, m := newTestServer()

	w := doJSON(srv, "POST", "/api/v1/bookings", bearerFor(t, 7, user.RoleDogOwner), gin.H{
		"field_id": 3,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
	m.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_SlotConflict(t *testing.T) {
	srv, m := newTestServer()
	m.bookings.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, apperr.Conflict("slot overlaps an existing booking"))

	w := doJSON(srv, "POST", "/api/v1/bookings", bearerFor(t, 7, user.RoleDogOwner), gin.H{
		"field_id":       3,
		"date":           "2025-06-14T00:00:00Z",
		"start_time":     "8:00AM",
		"end_time":       "9:00AM",
		"number_of_dogs": 2,
		"charge_id":      "ch_1",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCancelBooking_RunsThroughRefundEngine(t *testing.T) {
	srv, m := newTestServer()
	m.bookings.On("GetBooking", mock.Anything, 5).
		Return(&booking.Booking{ID: 5, UserID: 7}, nil)
	m.refunds.On("CancelBooking", mock.Anything, 5, "plans changed").
		Return(&refund.CancelResult{
			Booking:      &booking.Booking{ID: 5, UserID: 7, Status: booking.StatusCancelled},
			Tier:         refund.TierFull,
			RefundAmount: 40,
		}, nil)

	w := doJSON(srv, "POST", "/api/v1/bookings/5/cancel", bearerFor(t, 7, user.RoleDogOwner), gin.H{
		"reason": "plans changed",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"refund_amount":40`)
	m.refunds.AssertExpectations(t)
}

func TestCancelBooking_ForbiddenForOtherUser(t *testing.T) {
	srv, m := newTestServer()
	m.bookings.On("GetBooking", mock.Anything, 5).
		Return(&booking.Booking{ID: 5, UserID: 42}, nil)

	w := doJSON(srv, "POST", "/api/v1/bookings/5/cancel", bearerFor(t, 7, user.RoleDogOwner), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	m.refunds.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestListNotifications(t *testing.T) {
	srv, m := newTestServer()
	m.notifications.On("ListByUser", mock.Anything, 7, 50).
		Return([]notify.Notification{{ID: 1, UserID: 7, Type: notify.TypeBookingConfirmed}}, nil)

	w := doJSON(srv, "GET", "/api/v1/notifications", bearerFor(t, 7, user.RoleDogOwner), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	m.notifications.AssertExpectations(t)
}

func TestMarkNotificationRead_NotFound(t *testing.T) {
	srv, m := newTestServer()
	m.notifications.On("MarkRead", mock.Anything, 7, 3).
		Return(apperr.NotFound("notification 3 not found"))

	w := doJSON(srv, "POST", "/api/v1/notifications/3/read", bearerFor(t, 7, user.RoleDogOwner), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOwnerPayoutsAttributesAmountPerBooking(t *testing.T) {
	srv, m := newTestServer()

	share1, share2 := 32.0, 48.0
	ids := pq.Int64Array{11, 12}
	m.payoutStore.On("ListByOwner", mock.Anything, 20).
		Return([]payout.Payout{{ID: 1, FieldOwnerID: 20, Amount: 80, Status: payout.StatusPaid,
			CoveredBookingIDs: ids}}, nil)
	m.payoutStore.On("CoveredBookings", mock.Anything, ids).
		Return([]booking.Booking{
			{ID: 11, FieldOwnerAmount: &share1},
			{ID: 12, FieldOwnerAmount: &share2},
		}, nil)

	w := doJSON(srv, "GET", "/api/v1/owner/payouts", bearerFor(t, 20, user.RoleFieldOwner), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"booking_breakdown"`)
	assert.Contains(t, w.Body.String(), `"11":32`)
	assert.Contains(t, w.Body.String(), `"12":48`)
	m.payoutStore.AssertExpectations(t)
}

func TestTriggerPayout_RequiresAdmin(t *testing.T) {
	srv, m := newTestServer()

	w := doJSON(srv, "POST", "/admin/bookings/5/payout", bearerFor(t, 7, user.RoleDogOwner), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	m.payouts.AssertNotCalled(t, "ProcessBookingPayout", mock.Anything, mock.Anything)
}

func TestTriggerPayout_DeferredReturnsAccepted(t *testing.T) {
	srv, m := newTestServer()
	m.payouts.On("ProcessBookingPayout", mock.Anything, 5).
		Return(nil, apperr.DeferredRetry("funds not yet settled"))

	w := doJSON(srv, "POST", "/admin/bookings/5/payout", bearerFor(t, 1, user.RoleAdmin), nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "deferred")
}

func TestTriggerPayout_NoActionForSettledBooking(t *testing.T) {
	srv, m := newTestServer()
	m.payouts.On("ProcessBookingPayout", mock.Anything, 5).Return(nil, nil)

	w := doJSON(srv, "POST", "/admin/bookings/5/payout", bearerFor(t, 1, user.RoleAdmin), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no_action")
}
