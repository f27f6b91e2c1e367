package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vinender/fieldsy-backend-sub004/internal/auth"
	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/config"
	"github.com/vinender/fieldsy-backend-sub004/internal/email"
	"github.com/vinender/fieldsy-backend-sub004/internal/field"
	"github.com/vinender/fieldsy-backend-sub004/internal/notify"
	"github.com/vinender/fieldsy-backend-sub004/internal/payments"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/refund"
	"github.com/vinender/fieldsy-backend-sub004/internal/settings"
	"github.com/vinender/fieldsy-backend-sub004/internal/subscription"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

// Deps carries everything the HTTP layer needs. The handlers stay thin:
// domain rules live in the services and engines.
type Deps struct {
	Config *config.Config
	Email  *email.Service

	Users         user.Repository
	Fields        field.Repository
	FieldService  field.Service
	Availability  availability.Service
	Bookings      booking.Service
	Refunds       refund.Engine
	Subscriptions subscription.Engine
	Payouts       payout.Engine
	PayoutStore   payout.Repository
	Notifications notify.Repository
	Settings      settings.Repository

	Stripe *payments.StripeGateway
}

type Server struct {
	http   *http.Server
	router *gin.Engine
	deps   Deps
}

func New(deps Deps) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	s := &Server{
		router: router,
		deps:   deps,
		http: &http.Server{
			Addr:    ":" + deps.Config.Port,
			Handler: router,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", Health)
	s.router.GET("/metrics", Metrics())
	s.router.POST("/webhooks/stripe", s.stripeWebhook)

	authMiddleware := auth.AuthMiddleware(s.deps.Config.JWTSecret)

	api := s.router.Group("/api/v1")
	api.Use(authMiddleware)
	{
		api.GET("/fields/:fieldID", s.getField)
		api.GET("/fields/:fieldID/availability", s.checkAvailability)
		api.GET("/fields/:fieldID/reserved-dates", s.recurringReservedDates)

		api.POST("/bookings", s.createBooking)
		api.GET("/bookings", s.listMyBookings)
		api.GET("/bookings/:bookingID", s.getBooking)
		api.GET("/bookings/:bookingID/cancel-preview", s.previewCancellation)
		api.POST("/bookings/:bookingID/cancel", s.cancelBooking)

		api.POST("/subscriptions", s.createSubscription)
		api.GET("/subscriptions", s.listMySubscriptions)
		api.GET("/subscriptions/:subscriptionID", s.getSubscription)
		api.POST("/subscriptions/:subscriptionID/cancel", s.cancelSubscription)

		api.GET("/notifications", s.listNotifications)
		api.POST("/notifications/:notificationID/read", s.markNotificationRead)
	}

	owner := api.Group("/owner")
	owner.Use(auth.RequireRole(string(user.RoleFieldOwner)))
	{
		owner.GET("/fields", s.listOwnerFields)
		owner.GET("/payouts", s.listOwnerPayouts)
	}

	admin := s.router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(string(user.RoleAdmin)))
	{
		admin.GET("/settings", s.getSettings)
		admin.PUT("/settings/commission", s.updateCommissionRate)
		admin.PUT("/settings/cancellation-window", s.updateCancellationWindow)
		admin.PUT("/settings/payout-schedule", s.updatePayoutSchedule)
		admin.PUT("/owners/:ownerID/commission", s.setOwnerCommission)
		admin.POST("/bookings/:bookingID/payout", s.triggerPayout)
		admin.GET("/test-email", TestEmail(s.deps.Email))
	}
}

// Router exposes the HTTP handler, mainly for tests driving the server
// through httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
