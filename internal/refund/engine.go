package refund

import (
	"context"
	"fmt"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/commission"
	"github.com/vinender/fieldsy-backend-sub004/internal/field"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
	"github.com/vinender/fieldsy-backend-sub004/internal/notify"
	"github.com/vinender/fieldsy-backend-sub004/internal/payments"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/settings"
	"github.com/vinender/fieldsy-backend-sub004/internal/transaction"
)

// CancelResult summarizes what a cancellation did with the money.
type CancelResult struct {
	Booking      *booking.Booking `json:"booking"`
	Tier         Tier             `json:"tier"`
	RefundAmount float64          `json:"refund_amount"`
	RefundID     *string          `json:"refund_id,omitempty"`
	Reversed     bool             `json:"reversed"`
}

// Engine owns cancellation: it grades the refund tier, moves the booking to
// CANCELLED, returns the customer's money, and claws back any owner share
// that already went out. Booking cancellation always goes through here so the
// money side can never be skipped.
type Engine interface {
	CancelBooking(ctx context.Context, bookingID int, reason string) (*CancelResult, error)
	// Preview grades the tier without cancelling, for a confirmation dialog.
	Preview(ctx context.Context, bookingID int) (*CancelResult, error)
}

type engine struct {
	bookings booking.Repository
	fields   field.Service
	settings settings.Repository
	txns     transaction.Repository
	payouts  payout.Repository
	gateway  payments.Gateway
	notifier notify.Notifier
	now      func() time.Time
}

func NewEngine(
	bookings booking.Repository,
	fields field.Service,
	settingsRepo settings.Repository,
	txns transaction.Repository,
	payouts payout.Repository,
	gateway payments.Gateway,
	notifier notify.Notifier,
) Engine {
	return &engine{
		bookings: bookings,
		fields:   fields,
		settings: settingsRepo,
		txns:     txns,
		payouts:  payouts,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
	}
}

func (e *engine) Preview(ctx context.Context, bookingID int) (*CancelResult, error) {
	b, err := e.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	tier, amount, err := e.grade(ctx, b)
	if err != nil {
		return nil, err
	}
	return &CancelResult{Booking: b, Tier: tier, RefundAmount: amount}, nil
}

func (e *engine) CancelBooking(ctx context.Context, bookingID int, reason string) (*CancelResult, error) {
	b, err := e.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Cancellable() {
		return nil, apperr.Conflict("booking %s cannot be cancelled in status %s", b.BookingID, b.Status)
	}

	tier, amount, err := e.grade(ctx, b)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if err := e.bookings.MarkCancelled(ctx, b.ID, reason, now); err != nil {
		return nil, err
	}
	metrics.RecordBookingCancellation()

	result := &CancelResult{Booking: b, Tier: tier, RefundAmount: amount}

	if amount > 0 && b.PaymentStatus == booking.PaymentPaid {
		refundID, err := e.issueRefund(ctx, b, amount)
		if err != nil {
			return nil, err
		}
		result.RefundID = refundID

		// Claw back the owner's slice of the refunded amount if it already
		// left the platform.
		if b.PaidOut() {
			if err := e.reverseOwnerShare(ctx, b, amount); err != nil {
				return nil, err
			}
			result.Reversed = true
		}
		if err := e.bookings.UpdatePayoutStatus(ctx, b.ID, booking.PayoutRefunded, nil); err != nil {
			return nil, err
		}
	} else if b.PayoutStatus != nil {
		// No money moves, but the payout lane still closes: a cancelled
		// booking never keeps an open or completed payout status.
		if err := e.bookings.UpdatePayoutStatus(ctx, b.ID, booking.PayoutCancelled, nil); err != nil {
			return nil, err
		}
	}

	// Any pending payout batch carrying this booking must not go out.
	cancelled, err := e.payouts.CancelCovering(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if cancelled > 0 {
		logger.Info("pending payouts cancelled for refunded booking",
			"booking_id", b.BookingID, "count", cancelled)
	}

	metrics.RecordRefund(string(tier))
	logger.Info("booking cancelled",
		"booking_id", b.BookingID, "tier", tier, "refund", amount)

	e.notifier.Notify(ctx, b.UserID, notify.TypeRefundIssued,
		"Booking cancelled",
		refundMessage(b.BookingID, tier, amount),
		map[string]any{"booking_id": b.ID, "refund_amount": amount})
	if fld, err := e.fields.GetField(ctx, b.FieldID); err == nil {
		e.notifier.Notify(ctx, fld.OwnerID, notify.TypeBookingCancelled,
			"Booking cancelled",
			fmt.Sprintf("Booking %s for %s on %s was cancelled.",
				b.BookingID, fld.Name, b.Date.Format("2006-01-02")),
			map[string]any{"booking_id": b.ID})
	}

	// Callers get the booking as it now stands, not the pre-cancellation
	// snapshot.
	if fresh, err := e.bookings.FindByID(ctx, b.ID); err == nil {
		result.Booking = fresh
	}

	return result, nil
}

func (e *engine) grade(ctx context.Context, b *booking.Booking) (Tier, float64, error) {
	sys, err := e.settings.Get(ctx)
	if err != nil {
		return TierNone, 0, err
	}
	start, err := b.StartInstant()
	if err != nil {
		return TierNone, 0, apperr.Validation("booking %s has unparsable start time %q", b.BookingID, b.StartTime)
	}
	tier := TierFor(e.now(), start, sys.CancellationWindowHours)
	amount := commission.Round2(b.TotalPrice * tier.Percent() / 100)
	return tier, amount, nil
}

func (e *engine) issueRefund(ctx context.Context, b *booking.Booking, amount float64) (*string, error) {
	payment, err := e.txns.LatestPaymentForBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.StripeChargeID == nil {
		return nil, apperr.Conflict("booking %s has no charge to refund", b.BookingID)
	}

	refund, err := e.gateway.CreateRefund(ctx, *payment.StripeChargeID,
		payments.ToPence(amount), "requested_by_customer")
	if err != nil {
		return nil, apperr.Processor("refund failed", err)
	}

	// Refunds ledger as negative amounts so the booking's rows sum to its
	// net position.
	if _, err := e.txns.Append(ctx, &transaction.Transaction{
		BookingID:      b.ID,
		Type:           transaction.TypeRefund,
		Amount:         -amount,
		Status:         transaction.StatusCompleted,
		LifecycleStage: transaction.StageRefunded,
		StripeChargeID: payment.StripeChargeID,
		StripeRefundID: &refund.ID,
	}); err != nil {
		return nil, err
	}

	if err := e.bookings.UpdatePaymentStatus(ctx, b.ID, booking.PaymentRefunded); err != nil {
		return nil, err
	}
	return &refund.ID, nil
}

// reverseOwnerShare pulls the owner's portion of the refunded amount back
// from the connected account after the owner was already paid for a booking
// now being refunded. On a partial refund only the matching fraction of the
// transfer comes back; the owner keeps the rest.
func (e *engine) reverseOwnerShare(ctx context.Context, b *booking.Booking, refundAmount float64) error {
	if b.FieldOwnerAmount == nil || *b.FieldOwnerAmount <= 0 || b.TotalPrice <= 0 {
		return nil
	}
	share := commission.Round2(*b.FieldOwnerAmount * refundAmount / b.TotalPrice)
	if share > *b.FieldOwnerAmount {
		// Never pull back more than was transferred.
		share = *b.FieldOwnerAmount
	}
	if share <= 0 {
		return nil
	}
	transferID, err := e.lastTransferID(ctx, b.ID)
	if err != nil {
		return err
	}
	if transferID == "" {
		logger.Warn("paid-out booking has no transfer on ledger, skipping reversal",
			"booking_id", b.BookingID)
		return nil
	}

	reversal, err := e.gateway.ReverseTransfer(ctx, transferID, payments.ToPence(share))
	if err != nil {
		return apperr.Processor("transfer reversal failed", err)
	}
	logger.Info("owner share reversed",
		"booking_id", b.BookingID, "transfer_id", transferID,
		"reversal_id", reversal.ID, "amount", share)
	return nil
}

func (e *engine) lastTransferID(ctx context.Context, bookingID int) (string, error) {
	rows, err := e.txns.ListByBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].StripeTransferID != nil {
			return *rows[i].StripeTransferID, nil
		}
	}
	return "", nil
}

func refundMessage(ref string, tier Tier, amount float64) string {
	if tier == TierNone {
		return fmt.Sprintf("Booking %s was cancelled. No refund applies this close to the start time.", ref)
	}
	return fmt.Sprintf("Booking %s was cancelled. £%.2f will be returned to your payment method.", ref, amount)
}
