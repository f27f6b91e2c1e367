package settings

import "context"

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	UpdateDefaultCommissionRate(ctx context.Context, rate float64) error
	UpdateCancellationWindow(ctx context.Context, hours int) error
	UpdatePayoutReleaseSchedule(ctx context.Context, schedule PayoutReleaseSchedule) error
}
