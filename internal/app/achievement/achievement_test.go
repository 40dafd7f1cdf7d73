package achievement

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/aura-network/aura/internal/domain"
)

func ids(defs []domain.AchievementDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func TestDefaultDefinitions_Valid(t *testing.T) {
	if err := Validate(DefaultDefinitions()); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	if n := len(DefaultDefinitions()); n != 6 {
		t.Errorf("default catalog has %d entries, want 6", n)
	}
}

func TestEvaluate(t *testing.T) {
	defs := DefaultDefinitions()

	tests := []struct {
		name     string
		snap     domain.Snapshot
		unlocked []string
		want     []string
	}{
		{"nothing", domain.Snapshot{}, nil, nil},
		{"first task", domain.Snapshot{TotalTasks: 1}, nil, []string{"ach_first_blood"}},
		{"already unlocked", domain.Snapshot{TotalTasks: 1}, []string{"ach_first_blood"}, nil},
		{
			"several in catalog order",
			domain.Snapshot{TotalTasks: 12, Streak: 7, TotalPoints: 1000},
			nil,
			[]string{"ach_first_blood", "ach_warmup", "ach_streak_3", "ach_streak_7", "ach_rich"},
		},
		{"points threshold exact", domain.Snapshot{TotalPoints: 999}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Evaluate(tt.snap, tt.unlocked, defs))
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCatalog_ReplaceKeepsPreviousOnError(t *testing.T) {
	c, err := NewCatalog(DefaultDefinitions())
	if err != nil {
		t.Fatal(err)
	}

	bad := []domain.AchievementDefinition{
		{ID: "a", Metric: domain.MetricTotalTasks, Threshold: 1},
		{ID: "a", Metric: domain.MetricTotalTasks, Threshold: 2},
	}
	if err := c.Replace(bad); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if n := len(c.Definitions()); n != 6 {
		t.Errorf("catalog changed after failed replace: %d entries", n)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		defs []domain.AchievementDefinition
	}{
		{"missing id", []domain.AchievementDefinition{{Metric: domain.MetricStreak}}},
		{"unknown metric", []domain.AchievementDefinition{{ID: "x", Metric: "karma"}}},
		{"negative reward", []domain.AchievementDefinition{{ID: "x", Metric: domain.MetricStreak, Reward: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.defs); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLookup(t *testing.T) {
	c, _ := NewCatalog(DefaultDefinitions())
	d, ok := Lookup(c, "ach_streak_7")
	if !ok || d.Reward != 500 {
		t.Errorf("Lookup(ach_streak_7) = %+v, %v", d, ok)
	}
	if _, ok := Lookup(c, "nope"); ok {
		t.Error("Lookup of unknown id should fail")
	}
}

func TestStatuses_ProgressCapped(t *testing.T) {
	defs := DefaultDefinitions()[:2]
	got := Statuses(domain.Snapshot{TotalTasks: 4}, []string{"ach_first_blood"}, defs)
	if !got[0].Unlocked || got[0].Progress != 1 {
		t.Errorf("first_blood status = %+v", got[0])
	}
	if got[1].Unlocked || got[1].Progress != 4 {
		t.Errorf("warmup status = %+v", got[1])
	}
}

func TestDefaultDefinitions_Titles(t *testing.T) {
	want := map[string]string{
		"ach_first_blood":  "Initiation",
		"ach_warmup":       "Warming Up",
		"ach_focus_novice": "Deep Work",
		"ach_streak_3":     "Momentum",
		"ach_streak_7":     "Unstoppable",
		"ach_rich":         "Capitalist",
	}
	for _, d := range DefaultDefinitions() {
		if d.Title != want[d.ID] {
			t.Errorf("%s title = %q, want %q", d.ID, d.Title, want[d.ID])
		}
		if d.Description == "" {
			t.Errorf("%s has no description", d.ID)
		}
	}
}
