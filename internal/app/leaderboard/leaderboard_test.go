package leaderboard

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/clock"
	"github.com/aura-network/aura/internal/infra/remote"
)

func seed(t *testing.T, store *remote.Memory, user string, fields map[string]any) {
	t.Helper()
	if _, err := store.Update(context.Background(), user, fields); err != nil {
		t.Fatal(err)
	}
}

func newBoard(t *testing.T) *Service {
	t.Helper()
	store := remote.NewMemory()
	seed(t, store, "alice", map[string]any{"totalPoints": 900, "monthlyPoints": 300, "activeMonth": "2026-10", "streakCount": 4, "lastActiveDate": "2026-10-14"})
	seed(t, store, "bob", map[string]any{"totalPoints": 1500, "monthlyPoints": 800, "activeMonth": "2026-09", "streakCount": 9, "lastActiveDate": "2026-09-30"})
	seed(t, store, "carol", map[string]any{"totalPoints": 200, "monthlyPoints": 500, "activeMonth": "2026-10"})
	seed(t, store, "alfred", map[string]any{"totalPoints": 100, "monthlyPoints": 100, "activeMonth": "2026-10"})
	return New(store, clock.NewManual("2026-10-15"), nil)
}

func scores(entries []domain.LeaderboardEntry) map[string][2]int64 {
	out := make(map[string][2]int64, len(entries))
	for _, e := range entries {
		out[e.UserID] = [2]int64{int64(e.Rank), e.Score}
	}
	return out
}

func TestBoard_Monthly(t *testing.T) {
	got, err := newBoard(t).Board(context.Background(), domain.LeaderboardMonthly, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][2]int64{
		"alice":  {1, 300},
		"carol":  {2, 200}, // clamped to total
		"alfred": {3, 100},
		"bob":    {4, 0}, // stale month
	}
	if diff := cmp.Diff(want, scores(got)); diff != "" {
		t.Errorf("monthly board (-want +got):\n%s", diff)
	}
}

func TestBoard_AllTime(t *testing.T) {
	got, err := newBoard(t).Board(context.Background(), domain.LeaderboardAllTime, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].UserID != "bob" || got[1].UserID != "alice" {
		t.Errorf("all-time top 2 = %+v", got)
	}
	if got[0].StreakLength != 0 {
		t.Errorf("lapsed streak shown as %d", got[0].StreakLength)
	}
}

func TestBoard_FilterKeepsGlobalRank(t *testing.T) {
	got, err := newBoard(t).Board(context.Background(), domain.LeaderboardMonthly, "AL", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][2]int64{"alice": {1, 300}, "alfred": {3, 100}}
	if diff := cmp.Diff(want, scores(got)); diff != "" {
		t.Errorf("filtered board (-want +got):\n%s", diff)
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]domain.LeaderboardType{
		"":         domain.LeaderboardMonthly,
		"monthly":  domain.LeaderboardMonthly,
		"all_time": domain.LeaderboardAllTime,
	} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseType("weekly"); err == nil {
		t.Error("ParseType(weekly) should fail")
	}
}
