package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vinender/fieldsy-backend-sub004/internal/booking"
	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/metrics"
	"github.com/vinender/fieldsy-backend-sub004/internal/payout"
	"github.com/vinender/fieldsy-backend-sub004/internal/slotlock"
	"github.com/vinender/fieldsy-backend-sub004/internal/subscription"
)

// Scheduler owns the recurring background work: releasing payouts, retrying
// past-due subscriptions, materializing recurring bookings, completing past
// bookings, and clearing stale slot locks.
type Scheduler struct {
	cron          *cron.Cron
	bookings      booking.Service
	payouts       payout.Engine
	subscriptions subscription.Engine
	locks         slotlock.Service
}

func NewScheduler(
	bookings booking.Service,
	payouts payout.Engine,
	subscriptions subscription.Engine,
	locks slotlock.Service,
) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		bookings:      bookings,
		payouts:       payouts,
		subscriptions: subscriptions,
		locks:         locks,
	}
}

func (s *Scheduler) Start() error {
	specs := []struct {
		schedule string
		name     string
		run      func(context.Context)
	}{
		{"0 * * * *", "payout_sweep", s.payoutSweep},
		{"15 * * * *", "subscription_retry_sweep", s.retrySweep},
		{"0 1 * * *", "recurring_materialize_sweep", s.materializeSweep},
		{"30 0 * * *", "complete_past_bookings", s.completePast},
		{"*/5 * * * *", "slot_lock_cleanup", s.lockCleanup},
	}

	for _, job := range specs {
		job := job
		_, err := s.cron.AddFunc(job.schedule, func() {
			s.timed(job.name, job.run)
		})
		if err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	logger.Info("job scheduler started", "jobs", len(specs))
	return nil
}

// Stop halts scheduling and waits for in-flight jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("job scheduler stopped")
}

func (s *Scheduler) timed(name string, run func(context.Context)) {
	start := time.Now()
	run(context.Background())
	metrics.SweepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

func (s *Scheduler) payoutSweep(ctx context.Context) {
	report, err := s.payouts.Sweep(ctx)
	if err != nil {
		logger.WithError(err).Error("payout sweep failed")
		return
	}
	logger.Info("payout sweep finished",
		"processed", report.Processed, "deferred", report.Deferred, "failed", report.Failed)
}

func (s *Scheduler) retrySweep(ctx context.Context) {
	if _, err := s.subscriptions.RetrySweep(ctx); err != nil {
		logger.WithError(err).Error("subscription retry sweep failed")
	}
}

func (s *Scheduler) materializeSweep(ctx context.Context) {
	if _, err := s.subscriptions.MaterializeSweep(ctx); err != nil {
		logger.WithError(err).Error("recurring materialize sweep failed")
	}
}

func (s *Scheduler) completePast(ctx context.Context) {
	if _, err := s.bookings.CompletePastSweep(ctx); err != nil {
		logger.WithError(err).Error("complete past bookings sweep failed")
	}
}

func (s *Scheduler) lockCleanup(ctx context.Context) {
	if _, err := s.locks.CleanupExpired(ctx); err != nil {
		logger.WithError(err).Error("slot lock cleanup failed")
	}
}
