package notify

import "context"

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID int, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int) error
}
