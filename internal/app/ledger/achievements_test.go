package ledger

import (
	"slices"
	"testing"

	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/domain"
)

func TestEndToEnd_FirstTaskUnlocksReward(t *testing.T) {
	firstTask := domain.AchievementDefinition{
		ID: "ach_first_blood", Title: "Initiation",
		Metric: domain.MetricTotalTasks, Threshold: 1, Reward: 50,
	}
	f := newFixture(t, "2026-10-15", firstTask)
	e := f.fresh()

	change := e.RecordDailyActivity(ctx)
	if st := e.State(); st.StreakCount != 1 || st.LastActiveDate != "2026-10-15" || change.After != 1 {
		t.Fatalf("after activity: %+v", st)
	}

	res, err := e.RecordActivity(ctx, Activity{Tasks: 1, Points: 10, Reason: "task"})
	if err != nil {
		t.Fatalf("RecordActivity() error: %v", err)
	}
	if len(res.Unlocked) != 1 || res.Unlocked[0].ID != "ach_first_blood" {
		t.Errorf("unlocked = %+v", res.Unlocked)
	}

	st := e.State()
	if st.TotalPoints != 60 || st.MonthlyPoints != 60 {
		t.Errorf("points = %d/%d, want 60/60", st.TotalPoints, st.MonthlyPoints)
	}
	count := 0
	for _, id := range st.UnlockedAchievements {
		if id == "ach_first_blood" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("ach_first_blood recorded %d times", count)
	}
	if !f.notes.has("ACHIEVEMENT UNLOCKED", domain.NotifySuccess) {
		t.Errorf("notifications = %v", f.notes.titles())
	}
}

func TestEvaluateAchievements_Idempotent(t *testing.T) {
	def := domain.AchievementDefinition{ID: "ten", Title: "Ten", Metric: domain.MetricTotalPoints, Threshold: 10, Reward: 5}
	f := newFixture(t, "2026-10-15", def)
	e := f.fresh()

	e.EarnPoints(ctx, 10, "x")
	if got := e.State().TotalPoints; got != 15 {
		t.Fatalf("TotalPoints = %d, want 15 (10 + reward)", got)
	}

	if again := e.EvaluateAchievements(ctx); len(again) != 0 {
		t.Errorf("second evaluation unlocked %d", len(again))
	}
	if again := e.EvaluateAchievements(ctx); len(again) != 0 {
		t.Errorf("third evaluation unlocked %d", len(again))
	}
	if got := e.State().TotalPoints; got != 15 {
		t.Errorf("TotalPoints = %d after re-evaluation, want 15", got)
	}
}

func TestAchievements_RewardCanUnlockAnother(t *testing.T) {
	defs := []domain.AchievementDefinition{
		{ID: "fifty", Title: "Fifty", Metric: domain.MetricTotalPoints, Threshold: 50, Reward: 7},
		{ID: "first", Title: "First", Metric: domain.MetricTotalTasks, Threshold: 1, Reward: 50},
	}
	f := newFixture(t, "2026-10-15", defs...)
	e := f.fresh()

	res, err := e.RecordActivity(ctx, Activity{Tasks: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Unlocked) != 2 {
		t.Fatalf("unlocked %d, want 2", len(res.Unlocked))
	}
	st := e.State()
	if st.TotalPoints != 57 {
		t.Errorf("TotalPoints = %d, want 57", st.TotalPoints)
	}
	if !slices.Equal(st.UnlockedAchievements, []string{"first", "fifty"}) {
		t.Errorf("unlock order = %v", st.UnlockedAchievements)
	}
}

func TestAchievements_RewardAppliesMonthlyReset(t *testing.T) {
	def := domain.AchievementDefinition{ID: "streak", Title: "Streak", Metric: domain.MetricStreak, Threshold: 1, Reward: 20}
	f := newFixture(t, "2026-11-01", def)
	st := domain.NewLedgerState("2026-10")
	st.TotalPoints = 300
	st.MonthlyPoints = 300
	e := f.engine(st)

	e.RecordDailyActivity(ctx)

	got := e.State()
	if got.MonthlyPoints != 20 || got.ActiveMonth != "2026-11" {
		t.Errorf("monthly = %d in %s, want 20 in 2026-11", got.MonthlyPoints, got.ActiveMonth)
	}
	if got.TotalPoints != 320 {
		t.Errorf("TotalPoints = %d, want 320", got.TotalPoints)
	}
}

func TestAchievements_DefaultCatalogStreaks(t *testing.T) {
	f := newFixture(t, "2026-10-01", achievement.DefaultDefinitions()...)
	e := f.fresh()

	for i := 0; i < 7; i++ {
		e.RecordDailyActivity(ctx)
		f.clock.Advance(1)
	}

	st := e.State()
	for _, id := range []string{"ach_streak_3", "ach_streak_7"} {
		if !st.HasAchievement(id) {
			t.Errorf("missing %s after a 7-day streak", id)
		}
	}
	if st.TotalPoints != 650 {
		t.Errorf("TotalPoints = %d, want 650 (150 + 500)", st.TotalPoints)
	}
}

func TestRecordActivity_RejectsNegative(t *testing.T) {
	f := newFixture(t, "2026-10-15")
	if _, err := f.fresh().RecordActivity(ctx, Activity{Minutes: -1}); err == nil {
		t.Error("expected error for negative minutes")
	}
}
