package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
	"github.com/vinender/fieldsy-backend-sub004/internal/timeslot"
)

const DefaultConflictHorizonDays = 60

type Service interface {
	// IsAvailable runs the three-tier check: hard bookings, then recurring
	// holds, then soft checkout locks. The first conflict short-circuits.
	// Callers run it when offering a slot and again at checkout confirmation.
	IsAvailable(ctx context.Context, req CheckRequest) (*Result, error)
	// RecurringReservedDates projects future cadence dates in [from, to]
	// that have no concrete booking yet.
	RecurringReservedDates(ctx context.Context, fieldID int, from, to time.Time) ([]ReservedDate, error)
	// CheckRecurringConflicts scans existing concrete bookings up to
	// horizonDays ahead for collisions with a proposed new recurring series.
	CheckRecurringConflicts(ctx context.Context, fieldID int, startDate time.Time, startTime, endTime string, interval Interval, horizonDays int) (*RecurringConflictReport, error)
}

type service struct {
	bookings  BookingSource
	recurring RecurringSource
	locks     LockSource
}

func NewService(bookings BookingSource, recurring RecurringSource, locks LockSource) Service {
	return &service{bookings: bookings, recurring: recurring, locks: locks}
}

func (s *service) IsAvailable(ctx context.Context, req CheckRequest) (*Result, error) {
	reqStart, err := timeslot.Parse(req.StartTime)
	if err != nil {
		return nil, err
	}
	reqEnd, err := timeslot.Parse(req.EndTime)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := DayRange(req.Date)

	// Tier 1: concrete bookings.
	slots, err := s.bookings.ListActiveSlots(ctx, req.FieldID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		if req.ExcludeBookingID != nil && slot.BookingID == *req.ExcludeBookingID {
			continue
		}
		if timeslot.Overlaps(reqStart, reqEnd,
			timeslot.MinutesOrZero(slot.StartTime), timeslot.MinutesOrZero(slot.EndTime)) {
			metrics.RecordAvailabilityConflict(string(ConflictBooking))
			return &Result{
				Available:    false,
				Reason:       fmt.Sprintf("slot overlaps an existing booking (%s-%s)", slot.StartTime, slot.EndTime),
				ConflictType: ConflictBooking,
			}, nil
		}
	}

	// Tier 2: recurring holds, unless a concrete booking already supersedes
	// the hold on this date.
	holds, err := s.recurring.ListActiveHolds(ctx, req.FieldID)
	if err != nil {
		return nil, err
	}
	for _, hold := range holds {
		if req.ExcludeSubscriptionID != nil && hold.SubscriptionID == *req.ExcludeSubscriptionID {
			continue
		}
		if !hold.Matches(req.Date) {
			continue
		}
		materialized, err := s.bookings.ExistsForSubscriptionOn(ctx, hold.SubscriptionID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		if materialized {
			continue
		}
		if timeslot.Overlaps(reqStart, reqEnd,
			timeslot.MinutesOrZero(hold.StartTime), timeslot.MinutesOrZero(hold.EndTime)) {
			metrics.RecordAvailabilityConflict(string(ConflictRecurring))
			return &Result{
				Available:    false,
				Reason:       fmt.Sprintf("slot is reserved by a %s recurring booking (%s-%s)", hold.Interval, hold.StartTime, hold.EndTime),
				ConflictType: ConflictRecurring,
			}, nil
		}
	}

	// Tier 3: in-flight checkout holds.
	if req.CheckLocks && s.locks != nil {
		held, err := s.locks.HeldByOther(ctx, req.UserID, req.FieldID, req.Date, req.StartTime)
		if err != nil {
			return nil, err
		}
		if held {
			metrics.RecordAvailabilityConflict(string(ConflictLock))
			return &Result{
				Available:    false,
				Reason:       "another checkout for this slot is in progress",
				ConflictType: ConflictLock,
			}, nil
		}
	}

	return &Result{Available: true}, nil
}

func (s *service) RecurringReservedDates(ctx context.Context, fieldID int, from, to time.Time) ([]ReservedDate, error) {
	holds, err := s.recurring.ListActiveHolds(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	var reserved []ReservedDate
	fromDay, _ := DayRange(from)
	toDay, _ := DayRange(to)

	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		dayStart, dayEnd := DayRange(day)
		for _, hold := range holds {
			if !hold.Matches(day) {
				continue
			}
			materialized, err := s.bookings.ExistsForSubscriptionOn(ctx, hold.SubscriptionID, dayStart, dayEnd)
			if err != nil {
				return nil, err
			}
			if materialized {
				continue
			}
			reserved = append(reserved, ReservedDate{
				Date:           day,
				TimeSlot:       hold.TimeSlot,
				SubscriptionID: hold.SubscriptionID,
				Interval:       hold.Interval,
			})
		}
	}
	return reserved, nil
}

func (s *service) CheckRecurringConflicts(ctx context.Context, fieldID int, startDate time.Time, startTime, endTime string, interval Interval, horizonDays int) (*RecurringConflictReport, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultConflictHorizonDays
	}
	reqStart, err := timeslot.Parse(startTime)
	if err != nil {
		return nil, err
	}
	reqEnd, err := timeslot.Parse(endTime)
	if err != nil {
		return nil, err
	}

	anchor, _ := DayRange(startDate)
	proposed := RecurringHold{
		Interval:   interval,
		DayOfWeek:  anchor.Weekday(),
		DayOfMonth: anchor.Day(),
		StartDate:  anchor,
	}

	report := &RecurringConflictReport{ConflictingDates: []time.Time{}}
	for offset := 0; offset < horizonDays; offset++ {
		day := anchor.AddDate(0, 0, offset)
		if !proposed.Matches(day) {
			continue
		}
		dayStart, dayEnd := DayRange(day)
		slots, err := s.bookings.ListActiveSlots(ctx, fieldID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			if timeslot.Overlaps(reqStart, reqEnd,
				timeslot.MinutesOrZero(slot.StartTime), timeslot.MinutesOrZero(slot.EndTime)) {
				report.HasConflict = true
				report.ConflictingDates = append(report.ConflictingDates, day)
				break
			}
		}
	}
	return report, nil
}
