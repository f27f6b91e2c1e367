package refund

import "time"

// Tier names the refund band a cancellation falls into.
type Tier string

const (
	TierFull Tier = "full"
	TierHalf Tier = "half"
	TierNone Tier = "none"
)

// Percent is the share of the booking price returned for the tier.
func (t Tier) Percent() float64 {
	switch t {
	case TierFull:
		return 100
	case TierHalf:
		return 50
	default:
		return 0
	}
}

// TierFor grades a cancellation by how far ahead of the booking start it
// lands: outside the full window refunds 100%, inside it but outside half the
// window refunds 50%, and anything later refunds nothing.
func TierFor(now, start time.Time, windowHours int) Tier {
	hoursAhead := start.Sub(now).Hours()
	window := float64(windowHours)
	switch {
	case hoursAhead >= window:
		return TierFull
	case hoursAhead >= window/2:
		return TierHalf
	default:
		return TierNone
	}
}
