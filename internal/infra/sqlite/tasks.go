package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aura-network/aura/internal/domain"
)

// ─── Task List Operations ───────────────────────────────────────────────────

// sortableTime is RFC 3339 with a fixed-width fraction, so stored
// timestamps order correctly as text.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

const taskColumns = `id, user_id, text, completed, rewarded, due_date, due_time, created_at, completed_at`

// InsertTask stores a new task.
func (db *DB) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Text, boolInt(t.Completed), boolInt(t.Rewarded),
		t.DueDate, t.DueTime, t.CreatedAt.UTC().Format(sortableTime), nullTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask returns one of a user's tasks or domain.ErrTaskNotFound.
func (db *DB) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, err
}

// UpdateTask rewrites a task's mutable columns.
func (db *DB) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := db.db.ExecContext(ctx,
		`UPDATE tasks SET text = ?, completed = ?, rewarded = ?, due_date = ?, due_time = ?, completed_at = ?
		 WHERE user_id = ? AND id = ?`,
		t.Text, boolInt(t.Completed), boolInt(t.Rewarded), t.DueDate, t.DueTime, nullTime(t.CompletedAt),
		t.UserID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task. It reports whether the task existed.
func (db *DB) DeleteTask(ctx context.Context, userID, id string) (bool, error) {
	res, err := db.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListTasks returns a user's tasks, newest first.
func (db *DB) ListTasks(ctx context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	switch filter {
	case domain.TaskFilterActive:
		query += ` AND completed = 0`
	case domain.TaskFilterCompleted:
		query += ` AND completed = 1`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var (
		t                   domain.Task
		completed, rewarded int
		createdAt           string
		completedAt         sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Text, &completed, &rewarded,
		&t.DueDate, &t.DueTime, &createdAt, &completedAt); err != nil {
		return domain.Task{}, err
	}
	t.Completed = completed != 0
	t.Rewarded = rewarded != 0
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if completedAt.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
			t.CompletedAt = &ts
		}
	}
	return t, nil
}

// ─── Focus History Operations ───────────────────────────────────────────────

// AppendSession records a finished focus session and trims the user's
// history to the newest keep entries.
func (db *DB) AppendSession(ctx context.Context, s domain.FocusSession, keep int) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_history (id, user_id, label, minutes, completed_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Label, s.Minutes, s.CompletedAt.UTC().Format(sortableTime),
	); err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	if keep > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM session_history WHERE user_id = ? AND id NOT IN (
				SELECT id FROM session_history WHERE user_id = ?
				ORDER BY completed_at DESC, rowid DESC LIMIT ?)`,
			s.UserID, s.UserID, keep,
		); err != nil {
			return fmt.Errorf("trim session history: %w", err)
		}
	}
	return tx.Commit()
}

// ListSessions returns a user's focus history, newest first.
func (db *DB) ListSessions(ctx context.Context, userID string) ([]domain.FocusSession, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, user_id, label, minutes, completed_at FROM session_history
		 WHERE user_id = ? ORDER BY completed_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.FocusSession
	for rows.Next() {
		var (
			s  domain.FocusSession
			ts string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Label, &s.Minutes, &ts); err != nil {
			return nil, err
		}
		s.CompletedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClearSessions removes a user's focus history.
func (db *DB) ClearSessions(ctx context.Context, userID string) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM session_history WHERE user_id = ?`, userID)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sortableTime)
}
