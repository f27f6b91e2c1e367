package field

import "context"

type Repository interface {
	FindByID(ctx context.Context, id int) (*Field, error)
	ListByOwner(ctx context.Context, ownerID int) ([]Field, error)
	ListAmenityLabels(ctx context.Context) ([]AmenityLabel, error)
}
