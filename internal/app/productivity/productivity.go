// Package productivity turns completed tasks and focus sessions into ledger
// activity: counters, daily streak credit and points. It also owns the task
// list and the focus session history.
package productivity

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/app/ledger"
	"github.com/aura-network/aura/internal/domain"
)

// Config sets the point rates.
type Config struct {
	TaskPoints           int64   `toml:"task_points" env:"TASK_POINTS"`
	FocusPointsPerMinute float64 `toml:"focus_points_per_minute" env:"FOCUS_POINTS_PER_MINUTE"`
}

// DefaultConfig returns the stock rates: 10 points per task, 2 per focused minute.
func DefaultConfig() Config {
	return Config{TaskPoints: 10, FocusPointsPerMinute: 2}
}

// Engines resolves a user's ledger.
type Engines interface {
	Get(ctx context.Context, userID string) (*ledger.Engine, error)
}

// Store persists task lists and focus history.
type Store interface {
	domain.TaskStore
	domain.SessionLog
}

// Service records productive work against user ledgers.
type Service struct {
	engines Engines
	store   Store
	cfg     Config
	log     *zap.Logger
	now     func() time.Time

	// mu serialises task state changes so a completion is rewarded once.
	mu sync.Mutex
}

// New creates a Service.
func New(engines Engines, store Store, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{engines: engines, store: store, cfg: cfg, log: log.Named("productivity"), now: time.Now}
}

// ─── Task List ──────────────────────────────────────────────────────────────

// TaskUpdate is the result of changing a task's completion state. Activity
// is set when the change paid the completion reward.
type TaskUpdate struct {
	Task     domain.Task            `json:"task"`
	Activity *ledger.ActivityResult `json:"activity,omitempty"`
}

// AddTask puts a new open task at the top of the user's list.
func (s *Service) AddTask(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error) {
	if userID == "" {
		return domain.Task{}, domain.ErrUserRequired
	}
	in, err := in.Normalize()
	if err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      in.Text,
		DueDate:   in.DueDate,
		DueTime:   in.DueTime,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	s.log.Debug("task added", zap.String("user", userID), zap.String("task", t.ID))
	return t, nil
}

// Tasks lists the user's tasks, newest first.
func (s *Service) Tasks(ctx context.Context, userID string, filter domain.TaskFilter) ([]domain.Task, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	tasks, err := s.store.ListTasks(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// ToggleTask flips a task between open and completed. Reopening never
// deducts points, and only the first completion of a task is rewarded.
func (s *Service) ToggleTask(ctx context.Context, userID, taskID string) (TaskUpdate, error) {
	return s.setCompleted(ctx, userID, taskID, nil)
}

// CompleteTask marks an open task completed and pays the task reward:
// TotalTasks is counted, today is credited to the streak and TaskPoints
// are earned.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID string) (TaskUpdate, error) {
	done := true
	return s.setCompleted(ctx, userID, taskID, &done)
}

// setCompleted applies want (nil toggles). The task row is written before
// the ledger is credited and restored if the credit is rejected.
func (s *Service) setCompleted(ctx context.Context, userID, taskID string, want *bool) (TaskUpdate, error) {
	if userID == "" {
		return TaskUpdate{}, domain.ErrUserRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return TaskUpdate{}, err
	}
	completed := !before.Completed
	if want != nil {
		if *want && before.Completed {
			return TaskUpdate{}, domain.ErrTaskCompleted
		}
		completed = *want
	}

	t := before
	t.Completed = completed
	t.CompletedAt = nil
	if completed {
		at := s.now().UTC()
		t.CompletedAt = &at
	}
	pay := completed && !t.Rewarded
	if pay {
		t.Rewarded = true
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return TaskUpdate{}, err
	}
	if !pay {
		return TaskUpdate{Task: t}, nil
	}

	res, err := s.rewardTask(ctx, userID)
	if err != nil {
		if rerr := s.store.UpdateTask(ctx, before); rerr != nil {
			s.log.Error("restore task after rejected reward",
				zap.String("user", userID), zap.String("task", taskID), zap.Error(rerr))
		}
		return TaskUpdate{}, err
	}
	return TaskUpdate{Task: t, Activity: &res}, nil
}

func (s *Service) rewardTask(ctx context.Context, userID string) (ledger.ActivityResult, error) {
	e, err := s.engines.Get(ctx, userID)
	if err != nil {
		return ledger.ActivityResult{}, err
	}
	return e.RecordActivity(ctx, ledger.Activity{
		Tasks:  1,
		Points: max(s.cfg.TaskPoints, 0),
		Reason: "Task Complete",
	})
}

// DeleteTask removes a task from the list. Points already paid stay.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	ok, err := s.store.DeleteTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTaskNotFound
	}
	return nil
}

// ─── Focus Sessions ─────────────────────────────────────────────────────────

// FocusPoints is floor(minutes * rate).
func (s *Service) FocusPoints(minutes float64) int64 {
	return int64(math.Floor(minutes * s.cfg.FocusPointsPerMinute))
}

// CompleteFocusSession counts one session of the given length, earns the
// focus reward and adds the session to the history under label ("" means
// "Focus Session").
func (s *Service) CompleteFocusSession(ctx context.Context, userID string, minutes float64, label string) (ledger.ActivityResult, error) {
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) ||
		minutes >= math.MaxInt64 || minutes*s.cfg.FocusPointsPerMinute >= math.MaxInt64 {
		return ledger.ActivityResult{}, domain.ErrInvalidAmount
	}
	e, err := s.engines.Get(ctx, userID)
	if err != nil {
		return ledger.ActivityResult{}, err
	}
	res, err := e.RecordActivity(ctx, ledger.Activity{
		Sessions: 1,
		Minutes:  int64(math.Floor(minutes)),
		Points:   max(s.FocusPoints(minutes), 0),
		Reason:   "Focus Session",
	})
	if err != nil {
		return ledger.ActivityResult{}, err
	}

	if label = strings.TrimSpace(label); label == "" {
		label = "Focus Session"
	}
	entry := domain.FocusSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		Label:       label,
		Minutes:     minutes,
		CompletedAt: s.now().UTC(),
	}
	if err := s.store.AppendSession(ctx, entry, domain.SessionHistoryLimit); err != nil {
		s.log.Warn("record focus history", zap.String("user", userID), zap.Error(err))
	}
	return res, nil
}

// History returns the user's most recent focus sessions, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]domain.FocusSession, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	h, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("focus history: %w", err)
	}
	if h == nil {
		h = []domain.FocusSession{}
	}
	return h, nil
}

// ClearHistory purges the user's focus history. Points and counters stay.
func (s *Service) ClearHistory(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	return s.store.ClearSessions(ctx, userID)
}
