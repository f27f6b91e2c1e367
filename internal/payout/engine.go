package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/commission"
	"github.com/vinender/fieldsy-backend-sub004/internal/field"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
	"github.com/vinender/fieldsy-backend-sub004/internal/notify"
	"github.com/vinender/fieldsy-backend-sub004/internal/payments"
	"github.com/vinender/fieldsy-backend-sub004/internal/settings"
	"github.com/vinender/fieldsy-backend-sub004/internal/transaction"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

// Engine moves a paid booking's owner share to the field owner's connected
// account. Every step is re-entrant: a booking already COMPLETED, PROCESSING
// or HELD is a no-op, and anything not yet spendable is deferred PENDING for
// the next sweep rather than failed.
type Engine interface {
	ProcessBookingPayout(ctx context.Context, bookingID int) (*Payout, error)
	// Sweep processes every booking awaiting payout, isolating failures so one
	// bad booking cannot stall the rest.
	Sweep(ctx context.Context) (*SweepReport, error)
}

type SweepReport struct {
	Processed int `json:"processed"`
	Deferred  int `json:"deferred"`
	Failed    int `json:"failed"`
}

type engine struct {
	bookings booking.Repository
	fields   field.Service
	users    user.Repository
	settings settings.Repository
	txns     transaction.Repository
	payouts  Repository
	gateway  payments.Gateway
	notifier notify.Notifier
	now      func() time.Time
}

func NewEngine(
	bookings booking.Repository,
	fields field.Service,
	users user.Repository,
	settingsRepo settings.Repository,
	txns transaction.Repository,
	payouts Repository,
	gateway payments.Gateway,
	notifier notify.Notifier,
) Engine {
	return &engine{
		bookings: bookings,
		fields:   fields,
		users:    users,
		settings: settingsRepo,
		txns:     txns,
		payouts:  payouts,
		gateway:  gateway,
		notifier: notifier,
		now:      time.Now,
	}
}

func (e *engine) ProcessBookingPayout(ctx context.Context, bookingID int) (*Payout, error) {
	b, err := e.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Idempotency: a booking already through (or deliberately parked in) the
	// pipeline is never re-entered.
	switch {
	case b.PayoutStatusIs(booking.PayoutCompleted),
		b.PayoutStatusIs(booking.PayoutProcessing),
		b.PayoutStatusIs(booking.PayoutHeld),
		b.PayoutStatusIs(booking.PayoutRefunded):
		logger.Debug("payout already handled", "booking_id", b.BookingID, "payout_status", *b.PayoutStatus)
		return nil, nil
	}

	sys, err := e.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if ok, reason := booking.PayoutEligible(b, sys, e.now()); !ok {
		return nil, e.parkPending(ctx, b, reason)
	}

	fld, err := e.fields.GetField(ctx, b.FieldID)
	if err != nil {
		return nil, err
	}
	owner, err := e.users.FindByID(ctx, fld.OwnerID)
	if err != nil {
		return nil, err
	}

	amount, err := e.ownerAmount(ctx, b, fld.OwnerID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, e.parkPending(ctx, b, "owner amount is zero")
	}

	account, reason, err := e.payableAccount(ctx, owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		if uerr := e.bookings.UpdatePayoutStatus(ctx, b.ID, booking.PayoutPendingAccount, &reason); uerr != nil {
			return nil, uerr
		}
		metrics.RecordPayout("pending_account")
		e.notifier.Notify(ctx, owner.ID, notify.TypePayoutHeld,
			"Payout waiting on your account",
			"Connect and verify your payout account to receive your earnings.",
			map[string]any{"booking_id": b.ID})
		return nil, apperr.DeferredRetry("%s", reason)
	}

	// Funds gate: the customer's charge must have settled and the platform
	// balance must cover the transfer right now.
	payment, err := e.txns.LatestPaymentForBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil || payment.StripeChargeID == nil {
		return nil, e.parkPending(ctx, b, "no charge recorded for booking")
	}
	settled, err := e.gateway.ChargeSettled(ctx, *payment.StripeChargeID)
	if err != nil {
		return nil, apperr.Processor("failed to check charge settlement", err)
	}
	if !settled {
		return nil, e.parkPending(ctx, b, "charge funds not yet settled")
	}
	amountPence := payments.ToPence(amount)
	available, err := e.gateway.AvailableBalance(ctx)
	if err != nil {
		return nil, apperr.Processor("failed to read platform balance", err)
	}
	if available < amountPence {
		return nil, e.parkPending(ctx, b, fmt.Sprintf("platform balance %.2f below payout %.2f",
			payments.FromPence(available), amount))
	}

	if err := e.bookings.UpdatePayoutStatus(ctx, b.ID, booking.PayoutProcessing, nil); err != nil {
		return nil, err
	}
	row, err := e.payouts.Create(ctx, &Payout{
		FieldOwnerID:      owner.ID,
		Amount:            amount,
		Status:            StatusProcessing,
		CoveredBookingIDs: pq.Int64Array{int64(b.ID)},
	})
	if err != nil {
		return nil, err
	}

	transfer, err := e.gateway.CreateTransfer(ctx, amountPence, *owner.StripeAccountID, map[string]string{
		"booking_id": b.BookingID,
	})
	if err != nil {
		return nil, e.fail(ctx, b, row, owner.ID, "transfer failed", err)
	}
	e.ledger(ctx, b.ID, amount, transaction.StagePayoutInitiated, transfer.ID, "")

	stripePayout, err := e.gateway.CreatePayout(ctx, amountPence, *owner.StripeAccountID)
	if err != nil {
		return nil, e.fail(ctx, b, row, owner.ID, "payout failed", err)
	}

	if err := e.payouts.MarkPaid(ctx, row.ID, transfer.ID, stripePayout.ID); err != nil {
		return nil, err
	}
	if err := e.bookings.UpdatePayoutStatus(ctx, b.ID, booking.PayoutCompleted, nil); err != nil {
		return nil, err
	}
	e.ledger(ctx, b.ID, amount, transaction.StagePayoutCompleted, transfer.ID, stripePayout.ID)

	metrics.RecordPayout("completed")
	logger.Info("payout completed",
		"booking_id", b.BookingID, "owner_id", owner.ID, "amount", amount)
	e.notifier.Notify(ctx, owner.ID, notify.TypePayoutSent,
		"Payout on its way",
		fmt.Sprintf("£%.2f for booking %s has been sent to your account.", amount, b.BookingID),
		map[string]any{"booking_id": b.ID, "amount": amount})

	row.Status = StatusPaid
	row.StripeTransferID = &transfer.ID
	row.StripePayoutID = &stripePayout.ID
	return row, nil
}

func (e *engine) Sweep(ctx context.Context) (*SweepReport, error) {
	awaiting, err := e.bookings.ListAwaitingPayout(ctx)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	for i := range awaiting {
		_, err := e.ProcessBookingPayout(ctx, awaiting[i].ID)
		switch {
		case err == nil:
			report.Processed++
		case apperr.IsDeferredRetry(err):
			report.Deferred++
		default:
			report.Failed++
			logger.WithError(err).Error("payout sweep item failed",
				"booking_id", awaiting[i].BookingID)
		}
	}
	if report.Processed+report.Failed > 0 {
		logger.Info("payout sweep finished",
			"processed", report.Processed, "deferred", report.Deferred, "failed", report.Failed)
	}
	return report, nil
}

// parkPending leaves the booking PENDING with a reason and signals the caller
// to retry on a later sweep.
func (e *engine) parkPending(ctx context.Context, b *booking.Booking, reason string) error {
	if err := e.bookings.UpdatePayoutStatus(ctx, b.ID, booking.PayoutPending, &reason); err != nil {
		return err
	}
	metrics.RecordPayout("deferred")
	logger.Debug("payout deferred", "booking_id", b.BookingID, "reason", reason)
	return apperr.DeferredRetry("%s", reason)
}

func (e *engine) fail(ctx context.Context, b *booking.Booking, row *Payout, ownerID int, msg string, cause error) error {
	reason := fmt.Sprintf("%s: %v", msg, cause)
	if err := e.payouts.MarkFailed(ctx, row.ID, reason); err != nil {
		logger.WithError(err).Error("failed to mark payout row failed", "payout_id", row.ID)
	}
	if err := e.bookings.UpdatePayoutStatus(ctx, b.ID, booking.PayoutFailed, &reason); err != nil {
		logger.WithError(err).Error("failed to mark booking payout failed", "booking_id", b.BookingID)
	}
	metrics.RecordPayout("failed")
	e.notifier.NotifyAdmins(ctx, notify.TypePayoutFailed,
		"Payout failed",
		fmt.Sprintf("Payout for booking %s failed: %s", b.BookingID, msg),
		map[string]any{"booking_id": b.ID, "owner_id": ownerID})
	return apperr.Processor(msg, cause)
}

// ownerAmount returns the cached owner share, computing and persisting the
// commission split on first touch for bookings written before splits were
// precomputed at checkout.
func (e *engine) ownerAmount(ctx context.Context, b *booking.Booking, ownerID int) (float64, error) {
	if b.FieldOwnerAmount != nil {
		return *b.FieldOwnerAmount, nil
	}

	owner, err := e.users.FindByID(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	sys, err := e.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	rate := sys.DefaultCommissionRate
	if owner.CommissionRate != nil {
		rate = *owner.CommissionRate
	}

	split := commission.SplitWithRate(b.TotalPrice, rate)
	if err := e.bookings.SetCommissionSplit(ctx, b.ID, split.PlatformFee, split.FieldOwnerAmount); err != nil {
		return 0, err
	}
	return split.FieldOwnerAmount, nil
}

func (e *engine) payableAccount(ctx context.Context, owner *user.User) (*payments.Account, string, error) {
	if owner.StripeAccountID == nil || *owner.StripeAccountID == "" {
		return nil, "field owner has no connected payout account", nil
	}
	account, err := e.gateway.GetAccount(ctx, *owner.StripeAccountID)
	if err != nil {
		return nil, "", apperr.Processor("failed to load connected account", err)
	}
	if !account.Payable() {
		return nil, "connected account cannot receive payouts yet", nil
	}
	return account, "", nil
}

func (e *engine) ledger(ctx context.Context, bookingID int, amount float64, stage transaction.LifecycleStage, transferID, payoutID string) {
	tx := &transaction.Transaction{
		BookingID:      bookingID,
		Type:           transaction.TypePayment,
		Amount:         amount,
		Status:         transaction.StatusCompleted,
		LifecycleStage: stage,
	}
	if transferID != "" {
		tx.StripeTransferID = &transferID
	}
	if payoutID != "" {
		tx.StripePayoutID = &payoutID
	}
	if _, err := e.txns.Append(ctx, tx); err != nil {
		logger.WithError(err).Error("failed to ledger payout stage",
			"booking_id", bookingID, "stage", stage)
	}
}
