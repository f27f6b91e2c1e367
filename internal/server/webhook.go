package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v76"

	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
)

// invoicePayload is the slice of a Stripe invoice event the subscription
// engine needs.
type invoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Charge       string `json:"charge"`
}

// stripeWebhook verifies the signature and dispatches subscription invoice
// events. Unhandled event types are acknowledged so Stripe stops retrying
// them.
func (s *Server) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<16))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read payload"})
		return
	}

	event, err := s.deps.Stripe.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.WithError(err).Warn("stripe webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "invoice.paid", "invoice.payment_succeeded":
		s.handleInvoicePaid(c, event)
	case "invoice.payment_failed":
		s.handleInvoiceFailed(c, event)
	case "customer.subscription.deleted":
		s.handleSubscriptionDeleted(c, event)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (s *Server) handleInvoicePaid(c *gin.Context, event stripe.Event) {
	var inv invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil || inv.Subscription == "" {
		logger.Warn("invoice event without subscription reference", "event_id", event.ID)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := s.deps.Subscriptions.HandleInvoicePaid(c.Request.Context(), inv.Subscription, inv.Charge); err != nil {
		logger.WithError(err).Error("invoice.paid handling failed",
			"subscription", inv.Subscription, "event_id", event.ID)
		// Non-2xx makes Stripe redeliver; handlers are idempotent so a retry
		// is safe.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// handleSubscriptionDeleted fires when the processor ends a subscription,
// notably a cancel-at-period-end series reaching its period end.
func (s *Server) handleSubscriptionDeleted(c *gin.Context, event stripe.Event) {
	var sub struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil || sub.ID == "" {
		logger.Warn("subscription event without id", "event_id", event.ID)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := s.deps.Subscriptions.HandleSubscriptionEnded(c.Request.Context(), sub.ID); err != nil {
		logger.WithError(err).Error("customer.subscription.deleted handling failed",
			"subscription", sub.ID, "event_id", event.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (s *Server) handleInvoiceFailed(c *gin.Context, event stripe.Event) {
	var inv invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil || inv.Subscription == "" {
		logger.Warn("invoice event without subscription reference", "event_id", event.ID)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := s.deps.Subscriptions.HandleInvoiceFailed(c.Request.Context(), inv.Subscription); err != nil {
		logger.WithError(err).Error("invoice.payment_failed handling failed",
			"subscription", inv.Subscription, "event_id", event.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
