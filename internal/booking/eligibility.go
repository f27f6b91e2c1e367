package booking

import (
	"fmt"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/settings"
)

// PayoutEligible applies the payout-release policy gate. A booking qualifies
// once it is paid, confirmed or completed, and the admin-configured release
// rule passes. The returned reason explains a negative answer.
func PayoutEligible(b *Booking, s *settings.Settings, now time.Time) (bool, string) {
	if b.PaymentStatus != PaymentPaid {
		return false, fmt.Sprintf("payment status is %s, not PAID", b.PaymentStatus)
	}
	if b.Status != StatusConfirmed && b.Status != StatusCompleted {
		return false, fmt.Sprintf("booking status is %s", b.Status)
	}

	switch s.PayoutReleaseSchedule {
	case settings.ReleaseOnWeekend:
		weekday := now.UTC().Weekday()
		for _, day := range settings.WeekendReleaseDays {
			if weekday == day {
				return true, ""
			}
		}
		return false, "payouts release on weekend days only"

	default: // ReleaseAfterCancellationWindow
		start, err := b.StartInstant()
		if err != nil {
			return false, fmt.Sprintf("unparsable start time %q", b.StartTime)
		}
		releaseAt := start.Add(-time.Duration(s.CancellationWindowHours) * time.Hour)
		if now.After(releaseAt) {
			return true, ""
		}
		return false, fmt.Sprintf("cancellation window open until %s", releaseAt.Format(time.RFC3339))
	}
}
