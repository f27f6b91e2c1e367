package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/field"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
	"github.com/vinender/fieldsy-backend-sub004/internal/notify"
	"github.com/vinender/fieldsy-backend-sub004/internal/payments"
	"github.com/vinender/fieldsy-backend-sub004/internal/timeslot"
)

const retryInterval = 24 * time.Hour

// CreateRequest opens a new recurring series. The processor-side subscription
// is created by the checkout flow first; its id comes in here.
type CreateRequest struct {
	UserID       int                   `json:"user_id" validate:"required"`
	FieldID      int                   `json:"field_id" validate:"required"`
	Interval     availability.Interval `json:"interval" validate:"required,oneof=everyday weekly monthly"`
	StartDate    time.Time             `json:"start_date" validate:"required"`
	StartTime    string                `json:"start_time" validate:"required"`
	EndTime      string                `json:"end_time" validate:"required"`
	NumberOfDogs int                   `json:"number_of_dogs" validate:"required,min=1"`
	Amount       float64               `json:"amount" validate:"required,gt=0"`

	StripeSubscriptionID string `json:"stripe_subscription_id" validate:"required"`
}

// Engine drives the recurring-booking lifecycle: series creation, invoice
// webhooks, the payment retry ladder, and cancellation.
type Engine interface {
	CreateSubscription(ctx context.Context, req CreateRequest) (*Subscription, error)
	GetSubscription(ctx context.Context, id int) (*Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID int) ([]Subscription, error)

	// HandleInvoicePaid reactivates the subscription and materializes the next
	// occurrence inside the advance-booking window.
	HandleInvoicePaid(ctx context.Context, stripeSubscriptionID, chargeID string) error
	// HandleInvoiceFailed walks the retry ladder; the third consecutive
	// failure cancels the subscription and its future bookings.
	HandleInvoiceFailed(ctx context.Context, stripeSubscriptionID string) error
	// HandleSubscriptionEnded closes out a series the processor has already
	// terminated, such as a cancel-at-period-end subscription reaching its
	// period end.
	HandleSubscriptionEnded(ctx context.Context, stripeSubscriptionID string) error

	// RetrySweep re-attempts payment for past_due subscriptions whose retry
	// time has arrived.
	RetrySweep(ctx context.Context) (int, error)
	// MaterializeSweep catches up active series whose invoice webhook was
	// missed or whose next occurrence has since entered the advance window.
	MaterializeSweep(ctx context.Context) (int, error)

	// CancelSubscription ends the series. With atPeriodEnd the hold survives
	// until the processor finishes the paid-for period; otherwise it ends now
	// and future bookings are cancelled.
	CancelSubscription(ctx context.Context, id int, atPeriodEnd bool) error
}

type engine struct {
	repo     Repository
	bookings booking.Service
	fields   field.Service
	avail    availability.Service
	gateway  payments.Gateway
	notifier notify.Notifier

	maxAdvanceDays int
	now            func() time.Time
}

func NewEngine(
	repo Repository,
	bookings booking.Service,
	fields field.Service,
	avail availability.Service,
	gateway payments.Gateway,
	notifier notify.Notifier,
	maxAdvanceDays int,
) Engine {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 30
	}
	return &engine{
		repo:           repo,
		bookings:       bookings,
		fields:         fields,
		avail:          avail,
		gateway:        gateway,
		notifier:       notifier,
		maxAdvanceDays: maxAdvanceDays,
		now:            time.Now,
	}
}

func (e *engine) CreateSubscription(ctx context.Context, req CreateRequest) (*Subscription, error) {
	if _, err := timeslot.Parse(req.StartTime); err != nil {
		return nil, apperr.Validation("invalid start time %q", req.StartTime)
	}
	if _, err := timeslot.Parse(req.EndTime); err != nil {
		return nil, apperr.Validation("invalid end time %q", req.EndTime)
	}
	switch req.Interval {
	case availability.IntervalEveryday, availability.IntervalWeekly, availability.IntervalMonthly:
	default:
		return nil, apperr.Validation("unknown interval %q", req.Interval)
	}

	fld, err := e.fields.GetField(ctx, req.FieldID)
	if err != nil {
		return nil, err
	}
	if !fld.Bookable() {
		return nil, apperr.Validation("field %d is not accepting bookings", fld.ID)
	}

	report, err := e.avail.CheckRecurringConflicts(ctx, req.FieldID, req.StartDate,
		req.StartTime, req.EndTime, req.Interval, 0)
	if err != nil {
		return nil, err
	}
	if report.HasConflict {
		return nil, apperr.Conflict("recurring slot collides with existing bookings on %d date(s), first %s",
			len(report.ConflictingDates), report.ConflictingDates[0].Format("2006-01-02"))
	}

	anchor, _ := availability.DayRange(req.StartDate)
	created, err := e.repo.Create(ctx, &Subscription{
		UserID:               req.UserID,
		FieldID:              req.FieldID,
		Interval:             req.Interval,
		DayOfWeek:            int(anchor.Weekday()),
		DayOfMonth:           anchor.Day(),
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		TimeSlot:             fmt.Sprintf("%s - %s", req.StartTime, req.EndTime),
		NumberOfDogs:         req.NumberOfDogs,
		Amount:               req.Amount,
		StartDate:            anchor,
		Status:               StatusActive,
		StripeSubscriptionID: req.StripeSubscriptionID,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSubscriptionEvent("created")
	logger.Info("subscription created",
		"subscription_id", created.ID, "field_id", created.FieldID, "interval", created.Interval)
	return created, nil
}

func (e *engine) GetSubscription(ctx context.Context, id int) (*Subscription, error) {
	return e.repo.FindByID(ctx, id)
}

func (e *engine) ListUserSubscriptions(ctx context.Context, userID int) ([]Subscription, error) {
	return e.repo.ListByUser(ctx, userID)
}

func (e *engine) HandleInvoicePaid(ctx context.Context, stripeSubscriptionID, chargeID string) error {
	sub, err := e.repo.FindByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		return err
	}
	if sub.Status == StatusCanceled {
		logger.Warn("invoice paid for canceled subscription, ignoring",
			"subscription_id", sub.ID)
		return nil
	}

	if sub.PaymentRetryCount > 0 || sub.Status == StatusPastDue {
		if err := e.repo.ResetRetries(ctx, sub.ID); err != nil {
			return err
		}
		metrics.RecordSubscriptionEvent("recovered")
	}

	metrics.RecordSubscriptionEvent("invoice_paid")
	return e.materializeNext(ctx, sub, chargeID)
}

func (e *engine) HandleInvoiceFailed(ctx context.Context, stripeSubscriptionID string) error {
	sub, err := e.repo.FindByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		return err
	}
	if sub.Status == StatusCanceled {
		return nil
	}

	attempt := sub.PaymentRetryCount + 1
	if attempt < MaxPaymentRetries {
		nextRetry := e.now().Add(retryInterval)
		if err := e.repo.BumpRetry(ctx, sub.ID, nextRetry); err != nil {
			return err
		}
		metrics.RecordSubscriptionEvent("payment_retry")
		logger.Warn("subscription payment failed, scheduling retry",
			"subscription_id", sub.ID, "attempt", attempt, "next_retry", nextRetry)
		e.notifier.Notify(ctx, sub.UserID, notify.TypeSubscriptionPastDue,
			"Payment failed",
			fmt.Sprintf("We could not collect payment for your recurring booking (attempt %d of %d). We will retry tomorrow.",
				attempt, MaxPaymentRetries),
			map[string]any{"subscription_id": sub.ID})
		return nil
	}

	// Final strike: end the series.
	return e.cancelForFailure(ctx, sub)
}

func (e *engine) RetrySweep(ctx context.Context) (int, error) {
	due, err := e.repo.ListPastDueReady(ctx, e.now())
	if err != nil {
		return 0, err
	}

	attempted := 0
	for i := range due {
		sub := &due[i]
		if err := e.gateway.PayOpenInvoice(ctx, sub.StripeSubscriptionID); err != nil {
			// The failure webhook advances the retry ladder; here we only log.
			logger.WithError(err).Warn("subscription retry attempt failed",
				"subscription_id", sub.ID)
			continue
		}
		attempted++
	}
	if attempted > 0 {
		logger.Info("subscription retry sweep finished", "attempted", attempted, "due", len(due))
	}
	return attempted, nil
}

func (e *engine) MaterializeSweep(ctx context.Context) (int, error) {
	subs, err := e.repo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range subs {
		sub := &subs[i]
		// No charge id here: the ledger row carries the amount but no
		// processor reference until the invoice webhook reconciles it.
		if err := e.materializeNext(ctx, sub, ""); err != nil {
			logger.WithError(err).Error("materialize sweep failed for subscription",
				"subscription_id", sub.ID)
			continue
		}
		processed++
	}
	return processed, nil
}

func (e *engine) CancelSubscription(ctx context.Context, id int, atPeriodEnd bool) error {
	sub, err := e.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status == StatusCanceled {
		return apperr.Conflict("subscription %d is already canceled", id)
	}

	if atPeriodEnd {
		// The processor stops invoicing after the paid period; its terminal
		// webhook closes the series out on our side.
		if err := e.gateway.SetSubscriptionCancelAtPeriodEnd(ctx, sub.StripeSubscriptionID, true); err != nil {
			return apperr.Processor("failed to schedule processor cancellation", err)
		}
		if err := e.repo.SetCancelAtPeriodEnd(ctx, id, true); err != nil {
			return err
		}
		metrics.RecordSubscriptionEvent("cancel_scheduled")
		logger.Info("subscription cancellation scheduled for period end", "subscription_id", sub.ID)
		return nil
	}

	if err := e.gateway.CancelSubscription(ctx, sub.StripeSubscriptionID); err != nil {
		return apperr.Processor("failed to cancel processor subscription", err)
	}
	if err := e.repo.UpdateStatus(ctx, id, StatusCanceled); err != nil {
		return err
	}
	cancelled, err := e.bookings.CancelFutureForSubscription(ctx, sub.ID, "subscription cancelled")
	if err != nil {
		return err
	}
	metrics.RecordSubscriptionEvent("canceled")
	logger.Info("subscription canceled",
		"subscription_id", sub.ID, "future_bookings_cancelled", cancelled)
	return nil
}

// HandleSubscriptionEnded marks the series canceled without calling the
// processor: the event means the processor already ended it. Replayed events
// for an already-canceled series are acknowledged silently.
func (e *engine) HandleSubscriptionEnded(ctx context.Context, stripeSubscriptionID string) error {
	sub, err := e.repo.FindByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		return err
	}
	if sub.Status == StatusCanceled {
		return nil
	}

	if err := e.repo.UpdateStatus(ctx, sub.ID, StatusCanceled); err != nil {
		return err
	}
	cancelled, err := e.bookings.CancelFutureForSubscription(ctx, sub.ID, "subscription ended")
	if err != nil {
		return err
	}
	metrics.RecordSubscriptionEvent("ended")
	logger.Info("subscription ended by processor",
		"subscription_id", sub.ID, "future_bookings_cancelled", cancelled)
	e.notifier.Notify(ctx, sub.UserID, notify.TypeSubscriptionCanceled,
		"Recurring booking ended",
		"Your recurring booking has ended as scheduled.",
		map[string]any{"subscription_id": sub.ID})
	return nil
}

// materializeNext writes the concrete booking for the subscription's next
// cadence date inside the advance window. A conflicting date is skipped and
// logged rather than failing the invoice handling; the hold stays visible and
// a later occurrence will materialize.
func (e *engine) materializeNext(ctx context.Context, sub *Subscription, chargeID string) error {
	hold := sub.Hold()
	today, _ := availability.DayRange(e.now())

	from := today.AddDate(0, 0, -1)
	if sub.LastBookingDate != nil {
		last, _ := availability.DayRange(*sub.LastBookingDate)
		if last.After(from) {
			from = last
		}
	}

	next := hold.NextOccurrence(from)
	horizon := today.AddDate(0, 0, e.maxAdvanceDays)
	if next.After(horizon) {
		logger.Debug("next occurrence beyond advance window, not materializing",
			"subscription_id", sub.ID, "next", next.Format("2006-01-02"))
		return nil
	}

	excludeSub := sub.ID
	res, err := e.avail.IsAvailable(ctx, availability.CheckRequest{
		FieldID:               sub.FieldID,
		UserID:                sub.UserID,
		Date:                  next,
		StartTime:             sub.StartTime,
		EndTime:               sub.EndTime,
		ExcludeSubscriptionID: &excludeSub,
	})
	if err != nil {
		return err
	}
	if !res.Available {
		metrics.RecordSubscriptionEvent("occurrence_skipped")
		logger.Warn("recurring occurrence conflicts, skipping date",
			"subscription_id", sub.ID, "date", next.Format("2006-01-02"), "reason", res.Reason)
		return nil
	}

	created, err := e.bookings.MaterializeRecurring(ctx, booking.RecurringCreateRequest{
		FieldID:        sub.FieldID,
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Date:           next,
		StartTime:      sub.StartTime,
		EndTime:        sub.EndTime,
		NumberOfDogs:   sub.NumberOfDogs,
		Amount:         sub.Amount,
		ChargeID:       chargeID,
	})
	if err != nil {
		if apperr.IsConflict(err) {
			// Lost a race with a direct booking between check and insert.
			metrics.RecordSubscriptionEvent("occurrence_skipped")
			logger.Warn("recurring occurrence lost insert race, skipping date",
				"subscription_id", sub.ID, "date", next.Format("2006-01-02"))
			return nil
		}
		return err
	}

	if err := e.repo.SetLastBookingDate(ctx, sub.ID, next); err != nil {
		return err
	}
	logger.Info("recurring booking materialized",
		"subscription_id", sub.ID, "booking_id", created.BookingID, "date", next.Format("2006-01-02"))
	return nil
}

func (e *engine) cancelForFailure(ctx context.Context, sub *Subscription) error {
	if err := e.gateway.CancelSubscription(ctx, sub.StripeSubscriptionID); err != nil {
		return apperr.Processor("failed to cancel processor subscription", err)
	}
	if err := e.repo.UpdateStatus(ctx, sub.ID, StatusCanceled); err != nil {
		return err
	}
	cancelled, err := e.bookings.CancelFutureForSubscription(ctx, sub.ID, "subscription payment failed")
	if err != nil {
		return err
	}

	metrics.RecordSubscriptionEvent("canceled_payment_failure")
	logger.Error("subscription canceled after repeated payment failures",
		"subscription_id", sub.ID, "future_bookings_cancelled", cancelled)

	e.notifier.Notify(ctx, sub.UserID, notify.TypeSubscriptionCanceled,
		"Recurring booking cancelled",
		"Your recurring booking was cancelled after repeated failed payments.",
		map[string]any{"subscription_id": sub.ID})
	if fld, ferr := e.fields.GetField(ctx, sub.FieldID); ferr == nil {
		e.notifier.Notify(ctx, fld.OwnerID, notify.TypeSubscriptionCanceled,
			"Recurring booking cancelled",
			fmt.Sprintf("A recurring booking for %s was cancelled after failed payments.", fld.Name),
			map[string]any{"subscription_id": sub.ID})
	}
	return nil
}
