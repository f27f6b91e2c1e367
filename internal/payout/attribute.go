package payout

import (
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/commission"
)

// Attribute divides a payout amount across the bookings it covers, weighted
// by each booking's owner share. Every allocation is rounded to pence and the
// final booking absorbs the rounding remainder so the parts always sum back
// to the payout amount exactly.
func Attribute(amount float64, bookings []booking.Booking) map[int]float64 {
	allocations := make(map[int]float64, len(bookings))
	if len(bookings) == 0 {
		return allocations
	}

	var totalWeight float64
	for _, b := range bookings {
		totalWeight += ownerShare(&b)
	}
	if totalWeight <= 0 {
		// Degenerate: no owner amounts recorded. Split evenly.
		even := commission.Round2(amount / float64(len(bookings)))
		var allocated float64
		for i, b := range bookings {
			if i == len(bookings)-1 {
				allocations[b.ID] = commission.Round2(amount - allocated)
				break
			}
			allocations[b.ID] = even
			allocated += even
		}
		return allocations
	}

	var allocated float64
	for i, b := range bookings {
		if i == len(bookings)-1 {
			allocations[b.ID] = commission.Round2(amount - allocated)
			break
		}
		share := commission.Round2(amount * ownerShare(&b) / totalWeight)
		allocations[b.ID] = share
		allocated += share
	}
	return allocations
}

func ownerShare(b *booking.Booking) float64 {
	if b.FieldOwnerAmount != nil {
		return *b.FieldOwnerAmount
	}
	return 0
}
