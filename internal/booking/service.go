package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
	"github.com/vinender/fieldsy-backend-sub004/internal/commission"
	"github.com/vinender/fieldsy-backend-sub004/internal/field"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
	"github.com/vinender/fieldsy-backend-sub004/internal/notify"
	"github.com/vinender/fieldsy-backend-sub004/internal/slotlock"
	"github.com/vinender/fieldsy-backend-sub004/internal/timeslot"
	"github.com/vinender/fieldsy-backend-sub004/internal/transaction"
)

// CreateRequest is a direct (non-recurring) checkout.
type CreateRequest struct {
	FieldID      int       `json:"field_id" validate:"required"`
	UserID       int       `json:"user_id" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	StartTime    string    `json:"start_time" validate:"required"`
	EndTime      string    `json:"end_time" validate:"required"`
	NumberOfDogs int       `json:"number_of_dogs" validate:"required,min=1"`
	// ChargeID is the processor charge captured before the booking is written.
	ChargeID string `json:"charge_id" validate:"required"`
}

// RecurringCreateRequest materializes one occurrence of a recurring series.
// Availability has already been checked by the caller.
type RecurringCreateRequest struct {
	FieldID        int
	UserID         int
	SubscriptionID int
	Date           time.Time
	StartTime      string
	EndTime        string
	NumberOfDogs   int
	Amount         float64
	ChargeID       string
}

type Service interface {
	// CreateBooking runs the checkout path: take the slot lock, re-verify
	// availability under the lock, write the booking with its commission split
	// precomputed, and ledger the payment.
	CreateBooking(ctx context.Context, req CreateRequest) (*Booking, error)
	// MaterializeRecurring writes the concrete booking for one paid occurrence
	// of a subscription.
	MaterializeRecurring(ctx context.Context, req RecurringCreateRequest) (*Booking, error)

	GetBooking(ctx context.Context, id int) (*Booking, error)
	GetByReference(ctx context.Context, bookingID string) (*Booking, error)
	ListUserBookings(ctx context.Context, userID int) ([]Booking, error)

	// Transition moves the primary status along the allowed edges
	// (PENDING -> CONFIRMED/CANCELLED, CONFIRMED -> COMPLETED/CANCELLED).
	Transition(ctx context.Context, id int, to Status) (*Booking, error)
	// CompletePastSweep marks confirmed bookings whose day has passed as
	// COMPLETED. Run from the scheduler.
	CompletePastSweep(ctx context.Context) (int64, error)
	// CancelFutureForSubscription cancels the not-yet-started bookings of a
	// subscription that is ending, returning how many were cancelled.
	CancelFutureForSubscription(ctx context.Context, subscriptionID int, reason string) (int64, error)
}

type Options struct {
	MaxAdvanceDays int
	LockTTL        time.Duration
}

type service struct {
	repo       Repository
	fields     field.Service
	avail      availability.Service
	locks      slotlock.Service
	commission commission.Calculator
	txns       transaction.Repository
	notifier   notify.Notifier
	opts       Options
	now        func() time.Time
}

func NewService(
	repo Repository,
	fields field.Service,
	avail availability.Service,
	locks slotlock.Service,
	calc commission.Calculator,
	txns transaction.Repository,
	notifier notify.Notifier,
	opts Options,
) Service {
	if opts.MaxAdvanceDays <= 0 {
		opts.MaxAdvanceDays = 30
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = slotlock.DefaultTTL
	}
	return &service{
		repo:       repo,
		fields:     fields,
		avail:      avail,
		locks:      locks,
		commission: calc,
		txns:       txns,
		notifier:   notifier,
		opts:       opts,
		now:        time.Now,
	}
}

func (s *service) CreateBooking(ctx context.Context, req CreateRequest) (*Booking, error) {
	fld, err := s.fields.GetField(ctx, req.FieldID)
	if err != nil {
		return nil, err
	}
	if !fld.Bookable() {
		return nil, apperr.Validation("field %d is not accepting bookings", fld.ID)
	}
	if req.NumberOfDogs > fld.MaxDogs {
		return nil, apperr.Validation("field allows at most %d dogs", fld.MaxDogs)
	}

	duration, err := s.validateSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	price := commission.Round2(fld.PriceFor(duration) * float64(req.NumberOfDogs))

	day, _ := availability.DayRange(req.Date)

	// Hold the slot for the duration of the write so two checkouts for the
	// same slot serialize here instead of racing the insert.
	if _, err := s.locks.Acquire(ctx, req.UserID, req.FieldID, day, req.StartTime, s.opts.LockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.locks.Release(ctx, req.UserID, req.FieldID, day); err != nil {
			logger.WithError(err).Warn("failed to release slot lock",
				"user_id", req.UserID, "field_id", req.FieldID)
		}
	}()

	res, err := s.avail.IsAvailable(ctx, availability.CheckRequest{
		FieldID:    req.FieldID,
		UserID:     req.UserID,
		Date:       day,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		CheckLocks: true,
	})
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, apperr.Conflict("%s", res.Reason)
	}

	split, err := s.commission.SplitAmount(ctx, price, fld.OwnerID)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Booking{
		FieldID:            req.FieldID,
		UserID:             req.UserID,
		Date:               day,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		NumberOfDogs:       req.NumberOfDogs,
		TotalPrice:         price,
		Status:             StatusConfirmed,
		PaymentStatus:      PaymentPaid,
		PlatformCommission: &split.PlatformFee,
		FieldOwnerAmount:   &split.FieldOwnerAmount,
	})
	if err != nil {
		return nil, err
	}

	if err := s.ledgerPayment(ctx, created.ID, price, req.ChargeID); err != nil {
		return nil, err
	}

	metrics.RecordBooking("direct")
	logger.Info("booking created",
		"booking_id", created.BookingID, "field_id", created.FieldID, "amount", price)

	s.notifier.Notify(ctx, created.UserID, notify.TypeBookingConfirmed,
		"Booking confirmed",
		fmt.Sprintf("Your booking %s for %s is confirmed.", created.BookingID, fld.Name),
		map[string]any{"booking_id": created.ID})
	s.notifier.Notify(ctx, fld.OwnerID, notify.TypeBookingReceived,
		"New booking received",
		fmt.Sprintf("%s was booked for %s %s-%s.", fld.Name,
			day.Format("2006-01-02"), created.StartTime, created.EndTime),
		map[string]any{"booking_id": created.ID})

	return created, nil
}

func (s *service) MaterializeRecurring(ctx context.Context, req RecurringCreateRequest) (*Booking, error) {
	fld, err := s.fields.GetField(ctx, req.FieldID)
	if err != nil {
		return nil, err
	}

	split, err := s.commission.SplitAmount(ctx, req.Amount, fld.OwnerID)
	if err != nil {
		return nil, err
	}

	day, _ := availability.DayRange(req.Date)
	subID := req.SubscriptionID
	created, err := s.repo.Create(ctx, &Booking{
		FieldID:            req.FieldID,
		UserID:             req.UserID,
		Date:               day,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		NumberOfDogs:       req.NumberOfDogs,
		TotalPrice:         req.Amount,
		Status:             StatusConfirmed,
		PaymentStatus:      PaymentPaid,
		PlatformCommission: &split.PlatformFee,
		FieldOwnerAmount:   &split.FieldOwnerAmount,
		SubscriptionID:     &subID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.ledgerPayment(ctx, created.ID, req.Amount, req.ChargeID); err != nil {
		return nil, err
	}

	metrics.RecordBooking("recurring")
	return created, nil
}

func (s *service) GetBooking(ctx context.Context, id int) (*Booking, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByReference(ctx context.Context, bookingID string) (*Booking, error) {
	return s.repo.FindByBookingID(ctx, bookingID)
}

func (s *service) ListUserBookings(ctx context.Context, userID int) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Transition(ctx context.Context, id int, to Status) (*Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, to) {
		return nil, apperr.Conflict("booking %s cannot move from %s to %s", b.BookingID, b.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}
	b.Status = to
	return b, nil
}

func (s *service) CompletePastSweep(ctx context.Context) (int64, error) {
	today, _ := availability.DayRange(s.now())
	n, err := s.repo.CompletePast(ctx, today)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("past bookings completed", "count", n)
	}
	return n, nil
}

func (s *service) CancelFutureForSubscription(ctx context.Context, subscriptionID int, reason string) (int64, error) {
	today, _ := availability.DayRange(s.now())
	n, err := s.repo.CancelFutureBySubscription(ctx, subscriptionID, today, reason)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("future subscription bookings cancelled",
			"subscription_id", subscriptionID, "count", n)
	}
	return n, nil
}

func (s *service) ledgerPayment(ctx context.Context, bookingID int, amount float64, chargeID string) error {
	tx := &transaction.Transaction{
		BookingID:      bookingID,
		Type:           transaction.TypePayment,
		Amount:         amount,
		Status:         transaction.StatusCompleted,
		LifecycleStage: transaction.StageFundsPending,
	}
	if chargeID != "" {
		tx.StripeChargeID = &chargeID
	}
	_, err := s.txns.Append(ctx, tx)
	return err
}

// validateSlot checks the time pair parses and orders correctly and the date
// falls inside the bookable window. Returns the slot length in minutes.
func (s *service) validateSlot(date time.Time, startTime, endTime string) (int, error) {
	start, err := timeslot.Parse(startTime)
	if err != nil {
		return 0, apperr.Validation("invalid start time %q", startTime)
	}
	end, err := timeslot.Parse(endTime)
	if err != nil {
		return 0, apperr.Validation("invalid end time %q", endTime)
	}
	if end <= start {
		return 0, apperr.Validation("end time must be after start time")
	}

	day, _ := availability.DayRange(date)
	today, _ := availability.DayRange(s.now())
	if day.Before(today) {
		return 0, apperr.Validation("cannot book a past date")
	}
	if day.After(today.AddDate(0, 0, s.opts.MaxAdvanceDays)) {
		return 0, apperr.Validation("bookings can be made at most %d days in advance", s.opts.MaxAdvanceDays)
	}
	return int(end - start), nil
}
