package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinender/fieldsy-backend-sub004/internal/settings"
)

func (s *Server) getSettings(c *gin.Context) {
	cfg, err := s.deps.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) updateCommissionRate(c *gin.Context) {
	var body struct {
		Rate float64 `json:"rate" validate:"required,gt=0,lt=100"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if errs := ValidateStruct(body); len(errs) > 0 {
		RespondWithValidationErrors(c, errs)
		return
	}

	if err := s.deps.Settings.UpdateDefaultCommissionRate(c.Request.Context(), body.Rate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"default_commission_rate": body.Rate})
}

func (s *Server) updateCancellationWindow(c *gin.Context) {
	var body struct {
		Hours int `json:"hours" validate:"required,min=1,max=168"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if errs := ValidateStruct(body); len(errs) > 0 {
		RespondWithValidationErrors(c, errs)
		return
	}

	if err := s.deps.Settings.UpdateCancellationWindow(c.Request.Context(), body.Hours); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancellation_window_hours": body.Hours})
}

func (s *Server) updatePayoutSchedule(c *gin.Context) {
	var body struct {
		Schedule string `json:"schedule" validate:"required,oneof=after_cancellation_window on_weekend"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if errs := ValidateStruct(body); len(errs) > 0 {
		RespondWithValidationErrors(c, errs)
		return
	}

	if err := s.deps.Settings.UpdatePayoutReleaseSchedule(c.Request.Context(),
		settings.PayoutReleaseSchedule(body.Schedule)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout_release_schedule": body.Schedule})
}

// setOwnerCommission sets or clears a field owner's commission override. A
// null rate falls back to the system default.
func (s *Server) setOwnerCommission(c *gin.Context) {
	ownerID, ok := intParam(c, "ownerID")
	if !ok {
		return
	}

	var body struct {
		Rate *float64 `json:"rate"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.Rate != nil && (*body.Rate <= 0 || *body.Rate >= 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rate must be between 0 and 100 exclusive"})
		return
	}

	if err := s.deps.Users.SetCommissionOverride(c.Request.Context(), ownerID, body.Rate); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner_id": ownerID, "rate": body.Rate})
}

// triggerPayout runs one booking through the payout engine outside the sweep.
func (s *Server) triggerPayout(c *gin.Context) {
	bookingID, ok := intParam(c, "bookingID")
	if !ok {
		return
	}

	p, err := s.deps.Payouts.ProcessBookingPayout(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusOK, gin.H{"status": "no_action"})
		return
	}
	s.queuePayoutEmail(c.Request.Context(), p)
	c.JSON(http.StatusOK, p)
}
