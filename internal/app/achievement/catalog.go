// Package achievement holds the achievement catalog and the pure evaluator
// that decides which definitions a ledger snapshot newly satisfies.
package achievement

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aura-network/aura/internal/domain"
)

// Source supplies the current achievement definitions in catalog order.
type Source interface {
	Definitions() []domain.AchievementDefinition
}

// ─── Default Catalog ────────────────────────────────────────────────────────

// DefaultDefinitions returns the built-in catalog used when the config file
// declares no [[achievements]].
func DefaultDefinitions() []domain.AchievementDefinition {
	return []domain.AchievementDefinition{
		{ID: "ach_first_blood", Title: "Initiation", Description: "Complete your first protocol.", Icon: "check",
			Metric: domain.MetricTotalTasks, Threshold: 1, Reward: 50},
		{ID: "ach_warmup", Title: "Warming Up", Description: "Complete 10 protocols.", Icon: "list-checks",
			Metric: domain.MetricTotalTasks, Threshold: 10, Reward: 100},
		{ID: "ach_focus_novice", Title: "Deep Work", Description: "Finish a focus session.", Icon: "brain-circuit",
			Metric: domain.MetricTotalSessions, Threshold: 1, Reward: 50},
		{ID: "ach_streak_3", Title: "Momentum", Description: "Reach a 3-day streak.", Icon: "flame",
			Metric: domain.MetricStreak, Threshold: 3, Reward: 150},
		{ID: "ach_streak_7", Title: "Unstoppable", Description: "Reach a 7-day streak.", Icon: "zap",
			Metric: domain.MetricStreak, Threshold: 7, Reward: 500},
		{ID: "ach_rich", Title: "Capitalist", Description: "Amass 1,000 Credits.", Icon: "gem",
			Metric: domain.MetricTotalPoints, Threshold: 1000, Reward: 200},
	}
}

// ─── Catalog ────────────────────────────────────────────────────────────────

// Catalog is a hot-swappable, ordered set of definitions.
type Catalog struct {
	mu   sync.RWMutex
	defs []domain.AchievementDefinition
}

// NewCatalog validates defs and returns a catalog holding them.
func NewCatalog(defs []domain.AchievementDefinition) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(defs); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the catalog contents. On a validation error the previous
// definitions are kept.
func (c *Catalog) Replace(defs []domain.AchievementDefinition) error {
	if err := Validate(defs); err != nil {
		return err
	}
	c.mu.Lock()
	c.defs = slices.Clone(defs)
	c.mu.Unlock()
	return nil
}

// Definitions returns a copy of the catalog in order.
func (c *Catalog) Definitions() []domain.AchievementDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.defs)
}

// Validate checks ids are present and unique, metrics are known, and
// rewards and thresholds are non-negative.
func Validate(defs []domain.AchievementDefinition) error {
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("achievement %d: id required", i)
		}
		if seen[d.ID] {
			return fmt.Errorf("achievement %s: duplicate id", d.ID)
		}
		seen[d.ID] = true
		if d.Predicate == nil && !d.Metric.Valid() {
			return fmt.Errorf("achievement %s: unknown metric %q", d.ID, d.Metric)
		}
		if d.Threshold < 0 || d.Reward < 0 {
			return fmt.Errorf("achievement %s: threshold and reward must be >= 0", d.ID)
		}
	}
	return nil
}

// Lookup returns the definition with the given id.
func Lookup(src Source, id string) (domain.AchievementDefinition, bool) {
	for _, d := range src.Definitions() {
		if d.ID == id {
			return d, true
		}
	}
	return domain.AchievementDefinition{}, false
}
