package availability

import "time"

// DayRange returns the UTC midnight-to-midnight window containing t. Dates
// are compared by calendar day, never by instant.
func DayRange(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Matches reports whether the hold's cadence lands on the given date.
func (h RecurringHold) Matches(date time.Time) bool {
	day, _ := DayRange(date)
	anchor, _ := DayRange(h.StartDate)
	if day.Before(anchor) {
		return false
	}

	switch h.Interval {
	case IntervalEveryday:
		return true
	case IntervalWeekly:
		return day.Weekday() == h.DayOfWeek
	case IntervalMonthly:
		return day.Day() == clampDayOfMonth(h.DayOfMonth, day)
	default:
		return false
	}
}

// NextOccurrence returns the first date strictly after 'after' the cadence
// lands on.
func (h RecurringHold) NextOccurrence(after time.Time) time.Time {
	day, _ := DayRange(after)
	for {
		day = day.AddDate(0, 0, 1)
		if h.Matches(day) {
			return day
		}
	}
}

// clampDayOfMonth resolves a day-of-month anchor against months that are too
// short for it: an anchor of 31 lands on Apr 30 and Feb 28/29 rather than
// skipping the month.
func clampDayOfMonth(anchor int, inMonth time.Time) int {
	last := lastDayOfMonth(inMonth)
	if anchor > last {
		return last
	}
	return anchor
}

func lastDayOfMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
