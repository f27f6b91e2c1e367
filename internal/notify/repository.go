package notify

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vinender/fieldsy-backend-sub004/internal/apperr"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) Insert(ctx context.Context, n *Notification) error {
	data := n.Data
	if data == nil {
		data = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5)
	`, n.UserID, n.Type, n.Title, n.Message, data)
	return err
}

func (r *repository) ListByUser(ctx context.Context, userID int, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []Notification
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, type, title, message, data, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkRead(ctx context.Context, userID, notificationID int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications
		SET read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL
	`, notificationID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("notification %d not found", notificationID)
	}
	return nil
}
