package timeslot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
)

// Minutes is a time of day expressed as minutes since midnight.
type Minutes int

// Parse converts a time-of-day string into minutes since midnight. Both
// 24-hour ("14:30") and 12-hour ("2:30PM", "2:30 pm") forms are accepted.
func Parse(s string) (Minutes, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("empty time string")
	}

	upper := strings.ToUpper(raw)
	meridiem := ""
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, suffix) {
			meridiem = suffix
			upper = strings.TrimSpace(strings.TrimSuffix(upper, suffix))
			break
		}
	}

	parts := strings.Split(upper, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed time %q", s)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}

	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute out of range in %q", s)
	}

	switch meridiem {
	case "":
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("hour out of range in %q", s)
		}
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("hour out of range in %q", s)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("hour out of range in %q", s)
		}
		if hour != 12 {
			hour += 12
		}
	}

	return Minutes(hour*60 + minute), nil
}

// MinutesOrZero is the legacy fallback used when scanning stored rows, where
// one malformed historical value must not abort a whole availability scan.
// Failures are logged; new input should go through Parse instead.
func MinutesOrZero(s string) Minutes {
	m, err := Parse(s)
	if err != nil {
		logger.Warn("unparsable time string, defaulting to midnight", "value", s, "error", err)
		return 0
	}
	return m
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) share any minute.
// The three-clause form matches the slot-grid semantics the rest of the
// system is built around; do not simplify it.
func Overlaps(aStart, aEnd, bStart, bEnd Minutes) bool {
	return (aStart >= bStart && aStart < bEnd) ||
		(aEnd > bStart && aEnd <= bEnd) ||
		(aStart <= bStart && aEnd >= bEnd)
}

// OverlapsStrings is Overlaps over raw stored time strings, using the
// zero-default fallback for unparsable values.
func OverlapsStrings(aStart, aEnd, bStart, bEnd string) bool {
	return Overlaps(
		MinutesOrZero(aStart), MinutesOrZero(aEnd),
		MinutesOrZero(bStart), MinutesOrZero(bEnd),
	)
}

// Format renders minutes since midnight as 24-hour "HH:MM".
func Format(m Minutes) string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}
