package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aura-network/aura/internal/domain"
)

// ─── Notification Inbox Operations ──────────────────────────────────────────

// InsertNotification stores a notification in the inbox.
func (db *DB) InsertNotification(ctx context.Context, n domain.Notification) error {
	shown := 0
	if n.Shown {
		shown = 1
	}
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, title, message, kind, created_at, shown)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Kind),
		n.CreatedAt.UTC().Format(time.RFC3339Nano), shown,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// PendingNotifications returns a user's unshown notifications, oldest first.
func (db *DB) PendingNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, user_id, title, message, kind, created_at
		 FROM notifications WHERE user_id = ? AND shown = 0
		 ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("pending notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n    domain.Notification
			kind string
			ts   string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &ts); err != nil {
			return nil, err
		}
		n.Kind = domain.NotificationKind(kind)
		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationShown flags a notification as presented. It reports
// whether the id existed.
func (db *DB) MarkNotificationShown(ctx context.Context, id string) (bool, error) {
	res, err := db.db.ExecContext(ctx, `UPDATE notifications SET shown = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("mark notification shown: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteUserNotifications removes a user's inbox (account deletion).
func (db *DB) DeleteUserNotifications(ctx context.Context, userID string) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = ?`, userID)
	return err
}
