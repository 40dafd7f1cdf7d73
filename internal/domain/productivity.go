package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TaskFilter selects which tasks a listing returns.
type TaskFilter string

const (
	TaskFilterAll       TaskFilter = "all"
	TaskFilterActive    TaskFilter = "active"
	TaskFilterCompleted TaskFilter = "completed"
)

// ParseTaskFilter maps a query value to a filter; "" means all.
func ParseTaskFilter(s string) (TaskFilter, error) {
	switch f := TaskFilter(s); f {
	case "":
		return TaskFilterAll, nil
	case TaskFilterAll, TaskFilterActive, TaskFilterCompleted:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown filter %q", ErrInvalidTask, s)
}

// TimeLayout is the HH:MM layout of a task's due time.
const TimeLayout = "15:04"

// Task is one entry on a user's task list.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	Rewarded    bool       `json:"rewarded"` // the completion reward was paid
	DueDate     string     `json:"due_date,omitempty"`
	DueTime     string     `json:"due_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Overdue reports whether an open task's due date is before today.
func (t Task) Overdue(today string) bool {
	return !t.Completed && t.DueDate != "" && t.DueDate < today
}

// NewTask is the user input for adding a task.
type NewTask struct {
	Text    string `json:"text"`
	DueDate string `json:"due_date,omitempty"`
	DueTime string `json:"due_time,omitempty"`
}

// Normalize trims the input and checks the text and the optional due date
// and time.
func (n NewTask) Normalize() (NewTask, error) {
	n.Text = strings.TrimSpace(n.Text)
	n.DueDate = strings.TrimSpace(n.DueDate)
	n.DueTime = strings.TrimSpace(n.DueTime)
	if n.Text == "" {
		return NewTask{}, fmt.Errorf("%w: text required", ErrInvalidTask)
	}
	if n.DueDate != "" {
		if _, err := time.Parse(DateLayout, n.DueDate); err != nil {
			return NewTask{}, fmt.Errorf("%w: due date %q is not YYYY-MM-DD", ErrInvalidTask, n.DueDate)
		}
	}
	if n.DueTime != "" {
		if _, err := time.Parse(TimeLayout, n.DueTime); err != nil {
			return NewTask{}, fmt.Errorf("%w: due time %q is not HH:MM", ErrInvalidTask, n.DueTime)
		}
	}
	return n, nil
}

// TaskStore persists task lists.
type TaskStore interface {
	InsertTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, userID, id string) (Task, error) // ErrTaskNotFound
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, userID, id string) (bool, error)
	ListTasks(ctx context.Context, userID string, filter TaskFilter) ([]Task, error)
}

// ─── Focus History ──────────────────────────────────────────────────────────

// SessionHistoryLimit is how many finished focus sessions are kept per user.
const SessionHistoryLimit = 30

// FocusSession is one finished focus session in a user's history.
type FocusSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Label       string    `json:"label"`
	Minutes     float64   `json:"minutes"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionLog persists the focus history, newest first, trimmed to keep
// entries per user.
type SessionLog interface {
	AppendSession(ctx context.Context, s FocusSession, keep int) error
	ListSessions(ctx context.Context, userID string) ([]FocusSession, error)
	ClearSessions(ctx context.Context, userID string) error
}
