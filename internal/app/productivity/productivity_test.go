package productivity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/app/ledger"
	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/clock"
	"github.com/aura-network/aura/internal/infra/sqlite"
)

var ctx = context.Background()

func newService(t *testing.T, defs ...domain.AchievementDefinition) (*Service, *ledger.Registry) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	deps := ledger.Deps{Local: db, Clock: clock.NewManual("2026-10-15"), Audit: db}
	if len(defs) > 0 {
		cat, err := achievement.NewCatalog(defs)
		if err != nil {
			t.Fatal(err)
		}
		deps.Achievements = cat
	}
	reg := ledger.NewRegistry(deps)
	t.Cleanup(reg.Close)
	return New(reg, db, DefaultConfig(), nil), reg
}

func addTask(t *testing.T, svc *Service, userID, text string) domain.Task {
	t.Helper()
	task, err := svc.AddTask(ctx, userID, domain.NewTask{Text: text})
	if err != nil {
		t.Fatalf("AddTask(%q) error: %v", text, err)
	}
	return task
}

// ─── Task List ──────────────────────────────────────────────────────────────

func TestAddTask(t *testing.T) {
	svc, _ := newService(t)

	task, err := svc.AddTask(ctx, "u1", domain.NewTask{Text: "  ship release  ", DueDate: "2026-10-20", DueTime: "09:30"})
	if err != nil {
		t.Fatalf("AddTask() error: %v", err)
	}
	if task.ID == "" || task.Text != "ship release" || task.Completed || task.DueTime != "09:30" {
		t.Errorf("task = %+v", task)
	}

	second := addTask(t, svc, "u1", "review")
	tasks, err := svc.Tasks(ctx, "u1", domain.TaskFilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 || tasks[0].ID != second.ID {
		t.Errorf("Tasks() = %+v, want newest first", tasks)
	}
}

func TestAddTask_Rejects(t *testing.T) {
	svc, _ := newService(t)
	tests := []struct {
		name string
		in   domain.NewTask
	}{
		{"blank text", domain.NewTask{Text: "   "}},
		{"bad date", domain.NewTask{Text: "x", DueDate: "20/10/2026"}},
		{"bad time", domain.NewTask{Text: "x", DueTime: "9pm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddTask(ctx, "u1", tt.in); !errors.Is(err, domain.ErrInvalidTask) {
				t.Errorf("error = %v, want ErrInvalidTask", err)
			}
		})
	}
}

func TestCompleteTask(t *testing.T) {
	svc, reg := newService(t)
	task := addTask(t, svc, "u1", "write tests")

	upd, err := svc.CompleteTask(ctx, "u1", task.ID)
	if err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if !upd.Task.Completed || upd.Task.CompletedAt == nil || upd.Activity == nil {
		t.Fatalf("update = %+v", upd)
	}
	if upd.Activity.PointsEarned != 10 || upd.Activity.Streak.After != 1 {
		t.Errorf("activity = %+v", upd.Activity)
	}

	e, _ := reg.Get(ctx, "u1")
	st := e.State()
	if st.Stats.TotalTasks != 1 || st.TotalPoints != 10 || st.LastActiveDate != "2026-10-15" {
		t.Errorf("state = %+v", st)
	}

	if _, err := svc.CompleteTask(ctx, "u1", task.ID); !errors.Is(err, domain.ErrTaskCompleted) {
		t.Errorf("second CompleteTask() error = %v, want ErrTaskCompleted", err)
	}
}

func TestToggleTask_ReopenKeepsPointsAndPaysOnce(t *testing.T) {
	svc, reg := newService(t)
	task := addTask(t, svc, "u1", "stretch")

	if upd, err := svc.ToggleTask(ctx, "u1", task.ID); err != nil || upd.Activity == nil {
		t.Fatalf("first toggle = %+v, %v", upd, err)
	}
	reopened, err := svc.ToggleTask(ctx, "u1", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Task.Completed || reopened.Task.CompletedAt != nil || reopened.Activity != nil {
		t.Errorf("reopen = %+v", reopened)
	}
	again, err := svc.ToggleTask(ctx, "u1", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Task.Completed || again.Activity != nil {
		t.Errorf("re-complete = %+v, want completed without a second reward", again)
	}

	e, _ := reg.Get(ctx, "u1")
	if st := e.State(); st.TotalPoints != 10 || st.Stats.TotalTasks != 1 {
		t.Errorf("points/tasks = %d/%d, want 10/1", st.TotalPoints, st.Stats.TotalTasks)
	}

	active, _ := svc.Tasks(ctx, "u1", domain.TaskFilterActive)
	completed, _ := svc.Tasks(ctx, "u1", domain.TaskFilterCompleted)
	if len(active) != 0 || len(completed) != 1 {
		t.Errorf("active/completed = %d/%d, want 0/1", len(active), len(completed))
	}
}

func TestDeleteTask(t *testing.T) {
	svc, _ := newService(t)
	task := addTask(t, svc, "u1", "old")

	if err := svc.DeleteTask(ctx, "u2", task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("DeleteTask(other user) error = %v, want ErrTaskNotFound", err)
	}
	if err := svc.DeleteTask(ctx, "u1", task.ID); err != nil {
		t.Fatalf("DeleteTask() error: %v", err)
	}
	if _, err := svc.ToggleTask(ctx, "u1", task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("ToggleTask(deleted) error = %v, want ErrTaskNotFound", err)
	}
}

func TestCompleteTask_UnlocksDefaultAchievement(t *testing.T) {
	svc, reg := newService(t, achievement.DefaultDefinitions()...)
	task := addTask(t, svc, "u1", "first")

	upd, err := svc.CompleteTask(ctx, "u1", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(upd.Activity.Unlocked) != 1 || upd.Activity.Unlocked[0].ID != "ach_first_blood" {
		t.Errorf("unlocked = %+v", upd.Activity.Unlocked)
	}
	e, _ := reg.Get(ctx, "u1")
	if got := e.State().TotalPoints; got != 60 {
		t.Errorf("TotalPoints = %d, want 60", got)
	}
}

func TestCompleteTask_RejectedRewardReopensTask(t *testing.T) {
	svc, reg := newService(t)
	e, _ := reg.Get(ctx, "u1")
	if err := e.EarnPoints(ctx, math.MaxInt64, "full"); err != nil {
		t.Fatal(err)
	}
	task := addTask(t, svc, "u1", "one more")

	if _, err := svc.CompleteTask(ctx, "u1", task.ID); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("CompleteTask() error = %v, want ErrInvalidAmount", err)
	}
	open, _ := svc.Tasks(ctx, "u1", domain.TaskFilterActive)
	if len(open) != 1 || open[0].Rewarded {
		t.Errorf("task after rejected reward = %+v, want open and unpaid", open)
	}
}

func TestTasks_UserRequired(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.CompleteTask(ctx, "", "t1"); !errors.Is(err, domain.ErrUserRequired) {
		t.Errorf("CompleteTask error = %v, want ErrUserRequired", err)
	}
	if _, err := svc.AddTask(ctx, "", domain.NewTask{Text: "x"}); !errors.Is(err, domain.ErrUserRequired) {
		t.Errorf("AddTask error = %v, want ErrUserRequired", err)
	}
}

// ─── Focus Sessions ─────────────────────────────────────────────────────────

func TestCompleteFocusSession(t *testing.T) {
	svc, reg := newService(t)

	res, err := svc.CompleteFocusSession(ctx, "u1", 25.7, "")
	if err != nil {
		t.Fatalf("CompleteFocusSession() error: %v", err)
	}
	if res.PointsEarned != 51 {
		t.Errorf("PointsEarned = %d, want floor(25.7*2) = 51", res.PointsEarned)
	}

	e, _ := reg.Get(ctx, "u1")
	st := e.State().Stats
	if st.TotalSessions != 1 || st.TotalMinutes != 25 {
		t.Errorf("stats = %+v", st)
	}

	h, err := svc.History(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 1 || h[0].Label != "Focus Session" || h[0].Minutes != 25.7 {
		t.Errorf("history = %+v", h)
	}
}

func TestCompleteFocusSession_RejectsBadLength(t *testing.T) {
	svc, _ := newService(t)
	for _, m := range []float64{0, -3, math.NaN(), math.Inf(1), 1e19} {
		if _, err := svc.CompleteFocusSession(ctx, "u1", m, ""); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("minutes %v: error = %v, want ErrInvalidAmount", m, err)
		}
	}
	if h, _ := svc.History(ctx, "u1"); len(h) != 0 {
		t.Errorf("rejected sessions recorded: %+v", h)
	}
}

func TestHistory_KeepsNewest(t *testing.T) {
	svc, _ := newService(t)
	for i := 0; i < domain.SessionHistoryLimit+5; i++ {
		if _, err := svc.CompleteFocusSession(ctx, "u1", 1, fmt.Sprintf("s%02d", i)); err != nil {
			t.Fatal(err)
		}
	}

	h, err := svc.History(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != domain.SessionHistoryLimit {
		t.Fatalf("history has %d entries, want %d", len(h), domain.SessionHistoryLimit)
	}
	if want := fmt.Sprintf("s%02d", domain.SessionHistoryLimit+4); h[0].Label != want {
		t.Errorf("newest = %q, want %q", h[0].Label, want)
	}

	if err := svc.ClearHistory(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if h, _ := svc.History(ctx, "u1"); len(h) != 0 {
		t.Errorf("history after clear = %d entries", len(h))
	}
}
