package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
	"github.com/vinender/fieldsy-backend-sub004/internal/auth"
	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/subscription"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

// respondError maps the domain error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperr.IsDeferredRetry(err):
		// Not a failure: the operation stays pending for the next sweep.
		c.JSON(http.StatusAccepted, gin.H{"status": "deferred", "reason": err.Error()})
	case apperr.IsProcessor(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor error"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func currentUser(c *gin.Context) (int, bool) {
	uid, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return 0, false
	}
	return uid, true
}

func isAdmin(c *gin.Context) bool {
	role, ok := auth.GetUserRole(c)
	return ok && role == string(user.RoleAdmin)
}

func (s *Server) getField(c *gin.Context) {
	fieldID, ok := intParam(c, "fieldID")
	if !ok {
		return
	}

	fld, err := s.deps.FieldService.GetField(c.Request.Context(), fieldID)
	if err != nil {
		respondError(c, err)
		return
	}
	labels, err := s.deps.FieldService.ResolveAmenities(c.Request.Context(), fld.Amenities)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"field": fld, "amenity_labels": labels})
}

func (s *Server) checkAvailability(c *gin.Context) {
	fieldID, ok := intParam(c, "fieldID")
	if !ok {
		return
	}
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	startTime := c.Query("start_time")
	endTime := c.Query("end_time")
	if startTime == "" || endTime == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time and end_time are required"})
		return
	}

	res, err := s.deps.Availability.IsAvailable(c.Request.Context(), availability.CheckRequest{
		FieldID:    fieldID,
		UserID:     uid,
		Date:       date,
		StartTime:  startTime,
		EndTime:    endTime,
		CheckLocks: c.Query("at_checkout") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) recurringReservedDates(c *gin.Context) {
	fieldID, ok := intParam(c, "fieldID")
	if !ok {
		return
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
		return
	}

	dates, err := s.deps.Availability.RecurringReservedDates(c.Request.Context(), fieldID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserved_dates": dates})
}

func (s *Server) createBooking(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.UserID = uid

	if errs := ValidateStruct(req); len(errs) > 0 {
		RespondWithValidationErrors(c, errs)
		return
	}

	created, err := s.deps.Bookings.CreateBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	s.queueBookingEmails(c.Request.Context(), created)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listMyBookings(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	bookings, err := s.deps.Bookings.ListUserBookings(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (s *Server) getBooking(c *gin.Context) {
	id, ok := intParam(c, "bookingID")
	if !ok {
		return
	}
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	b, err := s.deps.Bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.UserID != uid && !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your booking"})
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) previewCancellation(c *gin.Context) {
	id, ok := intParam(c, "bookingID")
	if !ok {
		return
	}
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	res, err := s.deps.Refunds.Preview(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Booking.UserID != uid && !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your booking"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) cancelBooking(c *gin.Context) {
	id, ok := intParam(c, "bookingID")
	if !ok {
		return
	}
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	b, err := s.deps.Bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if b.UserID != uid && !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your booking"})
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "cancelled by customer"
	}

	res, err := s.deps.Refunds.CancelBooking(c.Request.Context(), id, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	s.queueCancellationEmail(c.Request.Context(), res)
	c.JSON(http.StatusOK, res)
}

func (s *Server) createSubscription(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req subscription.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.UserID = uid

	if errs := ValidateStruct(req); len(errs) > 0 {
		RespondWithValidationErrors(c, errs)
		return
	}

	created, err := s.deps.Subscriptions.CreateSubscription(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listMySubscriptions(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	subs, err := s.deps.Subscriptions.ListUserSubscriptions(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (s *Server) getSubscription(c *gin.Context) {
	id, ok := intParam(c, "subscriptionID")
	if !ok {
		return
	}
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	sub, err := s.deps.Subscriptions.GetSubscription(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if sub.UserID != uid && !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your subscription"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) cancelSubscription(c *gin.Context) {
	id, ok := intParam(c, "subscriptionID")
	if !ok {
		return
	}
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	sub, err := s.deps.Subscriptions.GetSubscription(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if sub.UserID != uid && !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your subscription"})
		return
	}

	var body struct {
		AtPeriodEnd bool `json:"at_period_end"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := s.deps.Subscriptions.CancelSubscription(c.Request.Context(), id, body.AtPeriodEnd); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "at_period_end": body.AtPeriodEnd})
}

func (s *Server) listNotifications(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := s.deps.Notifications.ListByUser(c.Request.Context(), uid, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	id, ok := intParam(c, "notificationID")
	if !ok {
		return
	}
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	if err := s.deps.Notifications.MarkRead(c.Request.Context(), uid, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (s *Server) listOwnerFields(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	fields, err := s.deps.Fields.ListByOwner(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// ownerPayoutView decorates a payout with the per-booking split of its
// amount, so owners can see what each booking earned them.
type ownerPayoutView struct {
	payout.Payout
	BookingBreakdown map[int]float64 `json:"booking_breakdown,omitempty"`
}

func (s *Server) listOwnerPayouts(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	payouts, err := s.deps.PayoutStore.ListByOwner(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]ownerPayoutView, 0, len(payouts))
	for i := range payouts {
		view := ownerPayoutView{Payout: payouts[i]}
		if len(payouts[i].CoveredBookingIDs) > 0 {
			covered, err := s.deps.PayoutStore.CoveredBookings(c.Request.Context(), payouts[i].CoveredBookingIDs)
			if err != nil {
				respondError(c, err)
				return
			}
			view.BookingBreakdown = payout.Attribute(payouts[i].Amount, covered)
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"payouts": views})
}
