package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ─── Ledger Types ───────────────────────────────────────────────────────────
// One LedgerState per user. It is the single authoritative record of points,
// streak, inventory and unlocked achievements; the local and remote copies
// are two serializations of this one structure.

// Consumable item identifiers understood by the ledger itself.
const (
	ItemStreakFreeze  = "streak_freeze"
	ItemRestoreStreak = "restore_streak"
)

// Inventory is a multiset of item identifiers → owned units.
type Inventory map[string]int

// Count returns the number of owned units of itemID.
func (inv Inventory) Count(itemID string) int {
	return inv[itemID]
}

// ActivityStats are the productivity counters that feed achievement
// predicates. They are tracked by the task and focus-session flows.
type ActivityStats struct {
	TotalTasks    int64 `json:"totalTasks"`
	TotalSessions int64 `json:"totalSessions"`
	TotalMinutes  int64 `json:"totalMinutes"`
}

// LedgerState is a user's point balance, monthly league score, streak and
// inventory.
type LedgerState struct {
	TotalPoints          int64         `json:"totalPoints"`
	MonthlyPoints        int64         `json:"monthlyPoints"`
	ActiveMonth          string        `json:"activeMonth"`
	StreakCount          int           `json:"streakCount"`
	LastActiveDate       string        `json:"lastActiveDate,omitempty"`
	Inventory            Inventory     `json:"inventory"`
	UnlockedAchievements []string      `json:"unlockedAchievements"`
	Stats                ActivityStats `json:"stats"`

	// Local-copy sync bookkeeping. Never written to the remote record.
	// SyncedVersion is the remote version this state last matched; Dirty
	// is set while the state holds changes the remote has not accepted.
	SyncedVersion int64 `json:"syncedVersion,omitempty"`
	Dirty         bool  `json:"dirty,omitempty"`
}

// NewLedgerState creates a fresh ledger for an account created in month.
func NewLedgerState(month string) LedgerState {
	return LedgerState{
		ActiveMonth:          month,
		Inventory:            make(Inventory),
		UnlockedAchievements: []string{},
	}
}

// Clone returns a deep copy safe to hand out of a locked section.
func (s LedgerState) Clone() LedgerState {
	out := s
	out.Inventory = make(Inventory, len(s.Inventory))
	for k, v := range s.Inventory {
		out.Inventory[k] = v
	}
	out.UnlockedAchievements = slices.Clone(s.UnlockedAchievements)
	if out.UnlockedAchievements == nil {
		out.UnlockedAchievements = []string{}
	}
	return out
}

// HasAchievement reports whether id is already unlocked.
func (s LedgerState) HasAchievement(id string) bool {
	return slices.Contains(s.UnlockedAchievements, id)
}

// RankedMonthly is the monthly league score as it must be read for display
// and ranking: zero if activeMonth is stale (lazy reset not yet applied) and
// never more than the lifetime total.
func (s LedgerState) RankedMonthly(month string) int64 {
	if s.ActiveMonth != month {
		return 0
	}
	return min(s.MonthlyPoints, s.TotalPoints)
}

// EffectiveStreak is the streak as it must be read for display: a streak
// whose last activity is older than yesterday reads as zero unless a streak
// freeze is waiting to bridge the gap on the next activity.
func (s LedgerState) EffectiveStreak(today string) int {
	if s.LastActiveDate == "" {
		return s.StreakCount
	}
	gap, err := DaysBetween(s.LastActiveDate, today)
	if err != nil {
		return 0
	}
	if gap <= 1 || s.Inventory.Count(ItemStreakFreeze) > 0 {
		return s.StreakCount
	}
	return 0
}

// Snapshot flattens the ledger and activity counters into the values that
// achievement predicates read.
func (s LedgerState) Snapshot(today string) Snapshot {
	return Snapshot{
		TotalPoints:   s.TotalPoints,
		MonthlyPoints: s.RankedMonthly(MonthOf(today)),
		Streak:        s.EffectiveStreak(today),
		TotalTasks:    s.Stats.TotalTasks,
		TotalSessions: s.Stats.TotalSessions,
		TotalMinutes:  s.Stats.TotalMinutes,
	}
}

// Snapshot is the read-only view passed to achievement predicates.
type Snapshot struct {
	TotalPoints   int64
	MonthlyPoints int64
	Streak        int
	TotalTasks    int64
	TotalSessions int64
	TotalMinutes  int64
}

// LedgerView is the display form of a ledger: lazy reset and clamps applied.
type LedgerView struct {
	UserID               string        `json:"user_id"`
	TotalPoints          int64         `json:"total_points"`
	MonthlyPoints        int64         `json:"monthly_points"`
	ActiveMonth          string        `json:"active_month"`
	StreakCount          int           `json:"streak_count"`
	LastActiveDate       string        `json:"last_active_date,omitempty"`
	Inventory            Inventory     `json:"inventory"`
	UnlockedAchievements []string      `json:"unlocked_achievements"`
	Stats                ActivityStats `json:"stats"`
}

// View renders the ledger for display as of the given local date.
func (s LedgerState) View(userID, today string) LedgerView {
	c := s.Clone()
	month := MonthOf(today)
	return LedgerView{
		UserID:               userID,
		TotalPoints:          c.TotalPoints,
		MonthlyPoints:        c.RankedMonthly(month),
		ActiveMonth:          month,
		StreakCount:          c.EffectiveStreak(today),
		LastActiveDate:       c.LastActiveDate,
		Inventory:            c.Inventory,
		UnlockedAchievements: c.UnlockedAchievements,
		Stats:                c.Stats,
	}
}

// ─── Remote Record Fields ───────────────────────────────────────────────────

// Field names written to the remote per-user record.
const (
	FieldTotalPoints          = "totalPoints"
	FieldMonthlyPoints        = "monthlyPoints"
	FieldActiveMonth          = "activeMonth"
	FieldStreakCount          = "streakCount"
	FieldLastActiveDate       = "lastActiveDate"
	FieldInventory            = "inventory"
	FieldUnlockedAchievements = "unlockedAchievements"
	FieldStats                = "stats"
)

// Fields returns the full superset of remote fields for this state.
func (s LedgerState) Fields() map[string]any {
	c := s.Clone()
	var last any
	if c.LastActiveDate != "" {
		last = c.LastActiveDate
	}
	return map[string]any{
		FieldTotalPoints:          c.TotalPoints,
		FieldMonthlyPoints:        c.MonthlyPoints,
		FieldActiveMonth:          c.ActiveMonth,
		FieldStreakCount:          c.StreakCount,
		FieldLastActiveDate:       last,
		FieldInventory:            c.Inventory,
		FieldUnlockedAchievements: c.UnlockedAchievements,
		FieldStats:                c.Stats,
	}
}

// MergeFields applies a remote snapshot onto the state, last-writer-wins per
// field: every field present in the record overrides the local value.
// Unlocked achievements are the exception: they are unioned so an
// identifier is never removed. It reports whether anything changed.
func (s *LedgerState) MergeFields(fields map[string]json.RawMessage) (bool, error) {
	before := s.Clone()

	for name, raw := range fields {
		var err error
		switch name {
		case FieldTotalPoints:
			err = json.Unmarshal(raw, &s.TotalPoints)
		case FieldMonthlyPoints:
			err = json.Unmarshal(raw, &s.MonthlyPoints)
		case FieldActiveMonth:
			err = json.Unmarshal(raw, &s.ActiveMonth)
		case FieldStreakCount:
			err = json.Unmarshal(raw, &s.StreakCount)
		case FieldLastActiveDate:
			var last *string
			err = json.Unmarshal(raw, &last)
			if err == nil {
				s.LastActiveDate = ""
				if last != nil {
					s.LastActiveDate = *last
				}
			}
		case FieldInventory:
			inv := make(Inventory)
			err = json.Unmarshal(raw, &inv)
			if err == nil {
				for k, v := range inv {
					if v <= 0 {
						delete(inv, k)
					}
				}
				s.Inventory = inv
			}
		case FieldUnlockedAchievements:
			var ids []string
			err = json.Unmarshal(raw, &ids)
			for _, id := range ids {
				if !slices.Contains(s.UnlockedAchievements, id) {
					s.UnlockedAchievements = append(s.UnlockedAchievements, id)
				}
			}
		case FieldStats:
			err = json.Unmarshal(raw, &s.Stats)
		default:
			continue
		}
		if err != nil {
			*s = before
			return false, fmt.Errorf("decode remote field %s: %w", name, err)
		}
	}

	if s.Inventory == nil {
		s.Inventory = make(Inventory)
	}
	if s.UnlockedAchievements == nil {
		s.UnlockedAchievements = []string{}
	}
	return !equalState(before, *s), nil
}

func equalState(a, b LedgerState) bool {
	if a.TotalPoints != b.TotalPoints || a.MonthlyPoints != b.MonthlyPoints ||
		a.ActiveMonth != b.ActiveMonth || a.StreakCount != b.StreakCount ||
		a.LastActiveDate != b.LastActiveDate || a.Stats != b.Stats {
		return false
	}
	if len(a.Inventory) != len(b.Inventory) {
		return false
	}
	for k, v := range a.Inventory {
		if b.Inventory[k] != v {
			return false
		}
	}
	return slices.Equal(a.UnlockedAchievements, b.UnlockedAchievements)
}
