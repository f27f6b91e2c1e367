package field

import (
	"time"

	"github.com/lib/pq"
)

type Field struct {
	ID          int            `db:"id" json:"id"`
	OwnerID     int            `db:"owner_id" json:"owner_id"`
	Name        string         `db:"name" json:"name"`
	City        string         `db:"city" json:"city"`
	Description string         `db:"description" json:"description"`

	// Days of week the field accepts bookings, e.g. {"Monday","Tuesday"}.
	OperatingDays pq.StringArray `db:"operating_days" json:"operating_days"`
	OpeningTime   string         `db:"opening_time" json:"opening_time"`
	ClosingTime   string         `db:"closing_time" json:"closing_time"`

	Price30Min float64 `db:"price_30min" json:"price_30min"`
	Price1Hr   float64 `db:"price_1hr" json:"price_1hr"`
	// Price is the legacy single price kept for fields created before
	// per-duration pricing existed.
	Price   float64 `db:"price" json:"price"`
	MaxDogs int     `db:"max_dogs" json:"max_dogs"`

	Amenities pq.StringArray `db:"amenities" json:"amenities"`

	IsApproved bool `db:"is_approved" json:"is_approved"`
	IsActive   bool `db:"is_active" json:"is_active"`
	IsBlocked  bool `db:"is_blocked" json:"is_blocked"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Bookable reports whether the field can accept new bookings at all.
func (f *Field) Bookable() bool {
	return f.IsApproved && f.IsActive && !f.IsBlocked
}

// PriceFor returns the price for a slot of the given length in minutes,
// falling back to the legacy price when per-duration pricing is unset.
func (f *Field) PriceFor(durationMinutes int) float64 {
	switch {
	case durationMinutes <= 30 && f.Price30Min > 0:
		return f.Price30Min
	case f.Price1Hr > 0:
		return f.Price1Hr
	default:
		return f.Price
	}
}

// AmenityLabel is the display label for an amenity slug.
type AmenityLabel struct {
	Name  string `db:"name"`
	Label string `db:"label"`
}
