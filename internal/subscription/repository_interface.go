package subscription

import (
	"context"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/availability"
)

// Repository persists subscriptions. It also implements the availability
// resolver's RecurringSource so active subscriptions project their holds.
type Repository interface {
	availability.RecurringSource

	Create(ctx context.Context, s *Subscription) (*Subscription, error)
	FindByID(ctx context.Context, id int) (*Subscription, error)
	FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)
	ListByUser(ctx context.Context, userID int) ([]Subscription, error)

	UpdateStatus(ctx context.Context, id int, status Status) error
	SetCancelAtPeriodEnd(ctx context.Context, id int, cancel bool) error
	// BumpRetry increments the retry count and schedules the next attempt.
	BumpRetry(ctx context.Context, id int, nextRetry time.Time) error
	// ResetRetries clears the retry state after a successful payment.
	ResetRetries(ctx context.Context, id int) error
	SetLastBookingDate(ctx context.Context, id int, date time.Time) error

	// ListPastDueReady returns past_due subscriptions whose next retry time
	// has arrived.
	ListPastDueReady(ctx context.Context, now time.Time) ([]Subscription, error)
	ListActive(ctx context.Context) ([]Subscription, error)
}
