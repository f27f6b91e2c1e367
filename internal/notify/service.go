package notify

import (
	"context"
	"encoding/json"

	"github.com/vinender/fieldsy-backend-sub004/internal/logger"
	"github.com/vinender/fieldsy-backend-sub004/internal/user"
)

// Notifier records in-app notifications. Delivery is best-effort: failures are
// logged and never propagate, so a broken notification insert cannot abort the
// money movement it decorates.
type Notifier interface {
	Notify(ctx context.Context, userID int, notifType, title, message string, data map[string]any)
	NotifyAdmins(ctx context.Context, notifType, title, message string, data map[string]any)
}

type notifier struct {
	repo  Repository
	users user.Repository
}

func NewNotifier(repo Repository, users user.Repository) Notifier {
	return &notifier{repo: repo, users: users}
}

func (n *notifier) Notify(ctx context.Context, userID int, notifType, title, message string, data map[string]any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}
	err = n.repo.Insert(ctx, &Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    payload,
	})
	if err != nil {
		logger.WithError(err).Error("failed to record notification",
			"user_id", userID, "type", notifType)
	}
}

func (n *notifier) NotifyAdmins(ctx context.Context, notifType, title, message string, data map[string]any) {
	adminIDs, err := n.users.ListAdminIDs(ctx)
	if err != nil {
		logger.WithError(err).Error("failed to resolve admin recipients", "type", notifType)
		return
	}
	for _, id := range adminIDs {
		n.Notify(ctx, id, notifType, title, message, data)
	}
}
