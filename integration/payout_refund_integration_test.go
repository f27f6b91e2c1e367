package integration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/refund"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

// seedBooking checks out a confirmed, paid booking and returns it.
func seedBooking(t *testing.T, st *stack, fieldID, userID, days int, start, end, chargeID string) *booking.Booking {
	t.Helper()
	created, err := st.bookings.CreateBooking(context.Background(), booking.CreateRequest{
		FieldID:      fieldID,
		UserID:       userID,
		Date:         daysAhead(days),
		StartTime:    start,
		EndTime:      end,
		NumberOfDogs: 1,
		ChargeID:     chargeID,
	})
	require.NoError(t, err)
	return created
}

func TestPayoutForEligibleBooking(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	gw := newFakeGateway()
	st := newStack(db, gw)
	ownerID := createTestUser(t, db, "owner@example.com", "Olive Owner", user.RoleFieldOwner)
	connectStripeAccount(t, db, ownerID, "acct_test_1")
	dogOwnerID := createTestUser(t, db, "walker@example.com", "Wendy Walker", user.RoleDogOwner)
	fieldID := createTestField(t, db, ownerID, "Meadow Field", 40)

	b := seedBooking(t, st, fieldID, dogOwnerID, 2, "8:00AM", "9:00AM", "ch_test_1")
	backdateBooking(t, db, b.ID, 1)

	p, err := st.payouts.ProcessBookingPayout(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, payout.StatusPaid, p.Status)
	assert.Equal(t, 32.0, p.Amount) // owner share of £40 at 20% commission

	var row struct {
		Status           string  `db:"status"`
		StripeTransferID *string `db:"stripe_transfer_id"`
		StripePayoutID   *string `db:"stripe_payout_id"`
	}
	err = db.Get(&row, `SELECT status, stripe_transfer_id, stripe_payout_id FROM payouts WHERE id = $1`, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", row.Status)
	require.NotNil(t, row.StripeTransferID)
	require.NotNil(t, row.StripePayoutID)

	var payoutStatus string
	err = db.Get(&payoutStatus, `SELECT payout_status FROM bookings WHERE id = $1`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", payoutStatus)

	var stages []string
	err = db.Select(&stages, `
		SELECT lifecycle_stage FROM transactions
		WHERE booking_id = $1 ORDER BY id
	`, b.ID)
	require.NoError(t, err)
	assert.Contains(t, stages, "PAYOUT_INITIATED")
	assert.Contains(t, stages, "PAYOUT_COMPLETED")

	// A second run is a no-op, not a double payment.
	again, err := st.payouts.ProcessBookingPayout(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	var payoutCount int
	err = db.Get(&payoutCount, `SELECT COUNT(*) FROM payouts`)
	require.NoError(t, err)
	assert.Equal(t, 1, payoutCount)
}

func TestPayoutDeferredInsideCancellationWindow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	st := newStack(db, newFakeGateway())
	ownerID := createTestUser(t, db, "owner@example.com", "Olive Owner", user.RoleFieldOwner)
	connectStripeAccount(t, db, ownerID, "acct_test_1")
	dogOwnerID := createTestUser(t, db, "walker@example.com", "Wendy Walker", user.RoleDogOwner)
	fieldID := createTestField(t, db, ownerID, "Meadow Field", 40)

	b := seedBooking(t, st, fieldID, dogOwnerID, 5, "8:00AM", "9:00AM", "ch_test_1")

	p, err := st.payouts.ProcessBookingPayout(context.Background(), b.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsDeferredRetry(err), "expected deferred retry, got %v", err)
	assert.Nil(t, p)

	var row struct {
		PayoutStatus     string  `db:"payout_status"`
		PayoutHeldReason *string `db:"payout_held_reason"`
	}
	err = db.Get(&row, `SELECT payout_status, payout_held_reason FROM bookings WHERE id = $1`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", row.PayoutStatus)
	require.NotNil(t, row.PayoutHeldReason)
	assert.Contains(t, *row.PayoutHeldReason, "cancellation window")
}

func TestPayoutParksWithoutConnectedAccount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	st := newStack(db, newFakeGateway())
	ownerID := createTestUser(t, db, "owner@example.com", "Olive Owner", user.RoleFieldOwner)
	dogOwnerID := createTestUser(t, db, "walker@example.com", "Wendy Walker", user.RoleDogOwner)
	fieldID := createTestField(t, db, ownerID, "Meadow Field", 40)

	b := seedBooking(t, st, fieldID, dogOwnerID, 2, "8:00AM", "9:00AM", "ch_test_1")
	backdateBooking(t, db, b.ID, 1)

	_, err := st.payouts.ProcessBookingPayout(context.Background(), b.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsDeferredRetry(err), "expected deferred retry, got %v", err)

	var payoutStatus string
	err = db.Get(&payoutStatus, `SELECT payout_status FROM bookings WHERE id = $1`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING_ACCOUNT", payoutStatus)

	// The owner is told to connect their account.
	var notifCount int
	err = db.Get(&notifCount, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, ownerID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, notifCount, 1)
}

func TestFullRefundOutsideWindow(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	st := newStack(db, newFakeGateway())
	ownerID := createTestUser(t, db, "owner@example.com", "Olive Owner", user.RoleFieldOwner)
	dogOwnerID := createTestUser(t, db, "walker@example.com", "Wendy Walker", user.RoleDogOwner)
	otherUserID := createTestUser(t, db, "other@example.com", "Other Walker", user.RoleDogOwner)
	fieldID := createTestField(t, db, ownerID, "Meadow Field", 40)

	b := seedBooking(t, st, fieldID, dogOwnerID, 5, "8:00AM", "9:00AM", "ch_test_1")

	result, err := st.refunds.CancelBooking(context.Background(), b.ID, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, refund.TierFull, result.Tier)
	assert.Equal(t, 40.0, result.RefundAmount)
	require.NotNil(t, result.RefundID)

	var row struct {
		Status        string `db:"status"`
		PaymentStatus string `db:"payment_status"`
		PayoutStatus  string `db:"payout_status"`
	}
	err = db.Get(&row, `SELECT status, payment_status, payout_status FROM bookings WHERE id = $1`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", row.Status)
	assert.Equal(t, "REFUNDED", row.PaymentStatus)
	assert.Equal(t, "REFUNDED", row.PayoutStatus)

	// Refunds ledger as negative amounts against the booking.
	var refundAmount float64
	err = db.Get(&refundAmount, `
		SELECT amount FROM transactions
		WHERE booking_id = $1 AND type = 'REFUND'
	`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, -40.0, refundAmount)

	// The cancelled row falls out of the slot index, so the slot is free again.
	_, err = st.bookings.CreateBooking(context.Background(), booking.CreateRequest{
		FieldID:      fieldID,
		UserID:       otherUserID,
		Date:         daysAhead(5),
		StartTime:    "8:00AM",
		EndTime:      "9:00AM",
		NumberOfDogs: 1,
		ChargeID:     "ch_test_2",
	})
	require.NoError(t, err)
}

func TestNoRefundCloseToStart(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	st := newStack(db, newFakeGateway())
	ownerID := createTestUser(t, db, "owner@example.com", "Olive Owner", user.RoleFieldOwner)
	dogOwnerID := createTestUser(t, db, "walker@example.com", "Wendy Walker", user.RoleDogOwner)
	fieldID := createTestField(t, db, ownerID, "Meadow Field", 40)

	b := seedBooking(t, st, fieldID, dogOwnerID, 2, "8:00AM", "9:00AM", "ch_test_1")
	backdateBooking(t, db, b.ID, 1)

	result, err := st.refunds.CancelBooking(context.Background(), b.ID, "no show")
	require.NoError(t, err)
	assert.Equal(t, refund.TierNone, result.Tier)
	assert.Equal(t, 0.0, result.RefundAmount)
	assert.Nil(t, result.RefundID)

	// No money moved: payment stays PAID, no refund row on the ledger.
	var row struct {
		Status        string `db:"status"`
		PaymentStatus string `db:"payment_status"`
	}
	err = db.Get(&row, `SELECT status, payment_status FROM bookings WHERE id = $1`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", row.Status)
	assert.Equal(t, "PAID", row.PaymentStatus)

	var refundCount int
	err = db.Get(&refundCount, `SELECT COUNT(*) FROM transactions WHERE booking_id = $1 AND type = 'REFUND'`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refundCount)
}

func TestRefundAfterPayoutReversesOwnerShare(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	cleanDatabase(t, db)

	gw := newFakeGateway()
	st := newStack(db, gw)
	ownerID := createTestUser(t, db, "owner@example.com", "Olive Owner", user.RoleFieldOwner)
	connectStripeAccount(t, db, ownerID, "acct_test_1")
	dogOwnerID := createTestUser(t, db, "walker@example.com", "Wendy Walker", user.RoleDogOwner)
	fieldID := createTestField(t, db, ownerID, "Meadow Field", 40)

	b := seedBooking(t, st, fieldID, dogOwnerID, 2, "8:00AM", "9:00AM", "ch_test_1")
	backdateBooking(t, db, b.ID, 1)

	_, err := st.payouts.ProcessBookingPayout(context.Background(), b.ID)
	require.NoError(t, err)

	// The session never happened after all: push the day back out so the
	// cancellation grades as fully refundable, then cancel the paid-out booking.
	_, err = db.Exec(`UPDATE bookings SET date = CURRENT_DATE + 5 WHERE id = $1`, b.ID)
	require.NoError(t, err)

	result, err := st.refunds.CancelBooking(context.Background(), b.ID, "field flooded")
	require.NoError(t, err)
	assert.Equal(t, refund.TierFull, result.Tier)
	assert.True(t, result.Reversed, "owner share should be clawed back after payout")
	require.NotNil(t, result.RefundID)

	var payoutStatus string
	err = db.Get(&payoutStatus, `SELECT payout_status FROM bookings WHERE id = $1`, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "REFUNDED", payoutStatus)
}
