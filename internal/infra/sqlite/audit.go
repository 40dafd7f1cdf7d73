package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aura-network/aura/internal/domain"
)

// ─── Audit Trail Operations ─────────────────────────────────────────────────

// AppendAudit inserts an audit entry. Implements domain.AuditLog.
func (db *DB) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, user_id, timestamp, type, entry_type, amount, reason, balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Type), string(e.EntryType), e.Amount, e.Reason, e.Balance,
	)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest entries for a user, newest first.
func (db *DB) ListAudit(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, user_id, timestamp, type, entry_type, amount, reason, balance
		 FROM audit_entries WHERE user_id = ?
		 ORDER BY timestamp DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			ts      string
			typ, et string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &ts, &typ, &et, &e.Amount, &e.Reason, &e.Balance); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		e.Type = domain.TransactionType(typ)
		e.EntryType = domain.EntryType(et)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteUserAudit removes a user's audit trail (account deletion).
func (db *DB) DeleteUserAudit(ctx context.Context, userID string) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE user_id = ?`, userID)
	return err
}

// EraseUser removes a user's audit trail, notification inbox, task list and
// focus history.
func (db *DB) EraseUser(ctx context.Context, userID string) error {
	if err := db.DeleteUserAudit(ctx, userID); err != nil {
		return fmt.Errorf("erase audit: %w", err)
	}
	if err := db.DeleteUserNotifications(ctx, userID); err != nil {
		return fmt.Errorf("erase notifications: %w", err)
	}
	if _, err := db.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("erase tasks: %w", err)
	}
	if err := db.ClearSessions(ctx, userID); err != nil {
		return fmt.Errorf("erase focus history: %w", err)
	}
	return nil
}
