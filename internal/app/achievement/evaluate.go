package achievement

import (
	"slices"

	"github.com/aura-network/aura/internal/domain"
)

// Evaluate returns, in catalog order, every definition not in unlocked whose
// predicate holds for snap. It never mutates anything; the caller applies
// the unlocks and rewards.
func Evaluate(snap domain.Snapshot, unlocked []string, defs []domain.AchievementDefinition) []domain.AchievementDefinition {
	var out []domain.AchievementDefinition
	for _, d := range defs {
		if slices.Contains(unlocked, d.ID) {
			continue
		}
		if d.Satisfied(snap) {
			out = append(out, d)
		}
	}
	return out
}

// Status is an achievement paired with whether a user has unlocked it.
type Status struct {
	domain.AchievementDefinition
	Unlocked bool  `json:"unlocked"`
	Progress int64 `json:"progress"`
}

// Statuses reports every catalog entry against a ledger snapshot.
func Statuses(snap domain.Snapshot, unlocked []string, defs []domain.AchievementDefinition) []Status {
	out := make([]Status, 0, len(defs))
	for _, d := range defs {
		out = append(out, Status{
			AchievementDefinition: d,
			Unlocked:              slices.Contains(unlocked, d.ID),
			Progress:              min(d.Metric.Value(snap), d.Threshold),
		})
	}
	return out
}
