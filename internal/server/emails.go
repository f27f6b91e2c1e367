package server

import (
	"context"

	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/refund"
)

// Outbound email is best-effort decoration on top of the in-app notification
// trail: a failed queue write is logged and never fails the request.

func (s *Server) queueBookingEmails(ctx context.Context, b *booking.Booking) {
	if s.deps.Email == nil {
		return
	}
	fld, err := s.deps.FieldService.GetField(ctx, b.FieldID)
	if err != nil {
		logger.WithError(err).Warn("skipping booking emails, field lookup failed", "field_id", b.FieldID)
		return
	}

	if u, err := s.deps.Users.FindByID(ctx, b.UserID); err == nil {
		if err := s.deps.Email.SendBookingConfirmation(ctx, u.Email, u.Name,
			fld.Name, b.BookingID, b.Date, b.StartTime, b.EndTime); err != nil {
			logger.WithError(err).Warn("failed to queue booking confirmation email", "booking_id", b.BookingID)
		}
	}
	if owner, err := s.deps.Users.FindByID(ctx, fld.OwnerID); err == nil {
		if err := s.deps.Email.SendBookingReceived(ctx, owner.Email, owner.Name,
			fld.Name, b.BookingID, b.Date, b.StartTime, b.EndTime); err != nil {
			logger.WithError(err).Warn("failed to queue booking received email", "booking_id", b.BookingID)
		}
	}
}

func (s *Server) queueCancellationEmail(ctx context.Context, res *refund.CancelResult) {
	if s.deps.Email == nil || res == nil || res.Booking == nil {
		return
	}
	b := res.Booking
	fld, err := s.deps.FieldService.GetField(ctx, b.FieldID)
	if err != nil {
		logger.WithError(err).Warn("skipping cancellation email, field lookup failed", "field_id", b.FieldID)
		return
	}
	if u, err := s.deps.Users.FindByID(ctx, b.UserID); err == nil {
		if err := s.deps.Email.SendCancellation(ctx, u.Email, u.Name,
			fld.Name, b.BookingID, res.RefundAmount); err != nil {
			logger.WithError(err).Warn("failed to queue cancellation email", "booking_id", b.BookingID)
		}
	}
}

func (s *Server) queuePayoutEmail(ctx context.Context, p *payout.Payout) {
	if s.deps.Email == nil || p == nil {
		return
	}
	if owner, err := s.deps.Users.FindByID(ctx, p.FieldOwnerID); err == nil {
		if err := s.deps.Email.SendPayoutNotification(ctx, owner.Email, owner.Name,
			p.Amount, len(p.CoveredBookingIDs)); err != nil {
			logger.WithError(err).Warn("failed to queue payout email", "payout_id", p.ID)
		}
	}
}
