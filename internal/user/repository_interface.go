package user

import "context"

type Repository interface {
	FindByID(ctx context.Context, id int) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListAdminIDs(ctx context.Context) ([]int, error)
	SetCommissionOverride(ctx context.Context, ownerID int, rate *float64) error
	SetStripeAccount(ctx context.Context, ownerID int, accountID string) error
}
