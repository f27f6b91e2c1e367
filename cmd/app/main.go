package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/cache"
	"github.com/vinender/fieldsy-backend-sub004/internal/commission"
	"github.com/vinender/fieldsy-backend-sub004/internal/config"
	"github.com/vinender/fieldsy-backend-sub004/internal/db"
	"github.com/vinender/fieldsy-backend-sub004/internal/email"
	"github.com/vinender/fieldsy-backend-sub004/internal/field"
	"github.com/vinender/fieldsy-backend-sub004/internal/jobs"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/notify"
	"github.com/vinender/fieldsy-backend-sub004/internal/payments"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/refund"
	"github.com/vinender/fieldsy-backend-sub004/internal/server"
	"github.com/vinender/fieldsy-backend-sub004/internal/settings"
	"github.com/vinender/fieldsy-backend-sub004/internal/slotlock"
	"github.com/vinender/fieldsy-backend-sub004/internal/subscription"
	"github.com/vinender/fieldsy-backend-sub004/internal/transaction"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

func main() {
	logger.Init()
	logger.Info("Starting Fieldsy application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	emailService := email.New(
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
		cfg.RedisAddr,
	)
	defer emailService.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emailService.Start(ctx)

	// Repositories.
	userRepo := user.NewRepository(database)
	fieldRepo := field.NewRepository(database)
	settingsRepo := settings.NewRepository(database, settings.Defaults{
		CommissionRate:          cfg.DefaultCommissionRate,
		CancellationWindowHours: cfg.CancellationWindowHours,
		MaxAdvanceBookingDays:   cfg.MaxAdvanceBookingDays,
		ReleaseSchedule:         settings.PayoutReleaseSchedule(cfg.PayoutReleaseSchedule),
	})
	txnRepo := transaction.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	payoutRepo := payout.NewRepository(database)
	subscriptionRepo := subscription.NewRepository(database)
	notificationRepo := notify.NewRepository(database)
	lockRepo := slotlock.NewRepository(database)

	// Services and engines.
	gateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	notifier := notify.NewNotifier(notificationRepo, userRepo)
	fieldService := field.NewService(fieldRepo, cache.RealClock())
	lockService := slotlock.NewService(lockRepo)
	availabilityService := availability.NewService(bookingRepo, subscriptionRepo, lockService)
	calculator := commission.NewCalculator(userRepo, settingsRepo)

	bookingService := booking.NewService(
		bookingRepo, fieldService, availabilityService, lockService,
		calculator, txnRepo, notifier,
		booking.Options{
			MaxAdvanceDays: cfg.MaxAdvanceBookingDays,
			LockTTL:        time.Duration(cfg.SlotLockTTLMinutes) * time.Minute,
		})
	payoutEngine := payout.NewEngine(
		bookingRepo, fieldService, userRepo, settingsRepo,
		txnRepo, payoutRepo, gateway, notifier)
	refundEngine := refund.NewEngine(
		bookingRepo, fieldService, settingsRepo,
		txnRepo, payoutRepo, gateway, notifier)
	subscriptionEngine := subscription.NewEngine(
		subscriptionRepo, bookingService, fieldService,
		availabilityService, gateway, notifier, cfg.MaxAdvanceBookingDays)

	scheduler := jobs.NewScheduler(bookingService, payoutEngine, subscriptionEngine, lockService)
	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	srv := server.New(server.Deps{
		Config:        cfg,
		Email:         emailService,
		Users:         userRepo,
		Fields:        fieldRepo,
		FieldService:  fieldService,
		Availability:  availabilityService,
		Bookings:      bookingService,
		Refunds:       refundEngine,
		Subscriptions: subscriptionEngine,
		Payouts:       payoutEngine,
		PayoutStore:   payoutRepo,
		Notifications: notificationRepo,
		Settings:      settingsRepo,
		Stripe:        gateway,
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
