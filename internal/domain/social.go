package domain

import "time"

// ─── Achievement Types ──────────────────────────────────────────────────────
// Achievements are declared in configuration as a metric threshold with a
// point reward. Unlocking is permanent.

// AchievementMetric names the snapshot value an achievement predicate reads.
type AchievementMetric string

const (
	MetricTotalTasks    AchievementMetric = "total_tasks"
	MetricTotalSessions AchievementMetric = "total_sessions"
	MetricTotalMinutes  AchievementMetric = "total_minutes"
	MetricStreak        AchievementMetric = "streak"
	MetricTotalPoints   AchievementMetric = "total_points"
	MetricMonthlyPoints AchievementMetric = "monthly_points"
)

// Valid reports whether m is a known metric.
func (m AchievementMetric) Valid() bool {
	switch m {
	case MetricTotalTasks, MetricTotalSessions, MetricTotalMinutes,
		MetricStreak, MetricTotalPoints, MetricMonthlyPoints:
		return true
	}
	return false
}

// Value reads the metric from a snapshot.
func (m AchievementMetric) Value(s Snapshot) int64 {
	switch m {
	case MetricTotalTasks:
		return s.TotalTasks
	case MetricTotalSessions:
		return s.TotalSessions
	case MetricTotalMinutes:
		return s.TotalMinutes
	case MetricStreak:
		return int64(s.Streak)
	case MetricTotalPoints:
		return s.TotalPoints
	case MetricMonthlyPoints:
		return s.MonthlyPoints
	}
	return 0
}

// AchievementDefinition is one catalog entry.
type AchievementDefinition struct {
	ID          string            `json:"id" toml:"id"`
	Title       string            `json:"title" toml:"title"`
	Description string            `json:"description" toml:"description"`
	Icon        string            `json:"icon" toml:"icon"`
	Metric      AchievementMetric `json:"metric" toml:"metric"`
	Threshold   int64             `json:"threshold" toml:"threshold"`
	Reward      int64             `json:"reward" toml:"reward"`

	// Predicate overrides the metric threshold when set.
	Predicate func(Snapshot) bool `json:"-" toml:"-"`
}

// Satisfied evaluates the definition's predicate against a snapshot.
func (d AchievementDefinition) Satisfied(s Snapshot) bool {
	if d.Predicate != nil {
		return d.Predicate(s)
	}
	return d.Metric.Value(s) >= d.Threshold
}

// ─── Shop Types ─────────────────────────────────────────────────────────────

// ItemKind distinguishes one-off badges from repeatable consumables.
type ItemKind string

const (
	ItemBadge      ItemKind = "badge"      // permanent, at most one per user
	ItemConsumable ItemKind = "consumable" // may be bought repeatedly
)

// ShopItem is one entry in the shop catalog.
type ShopItem struct {
	ID          string   `json:"id" toml:"id"`
	Name        string   `json:"name" toml:"name"`
	Kind        ItemKind `json:"kind" toml:"kind"`
	Cost        int64    `json:"cost" toml:"cost"`
	Icon        string   `json:"icon" toml:"icon"`
	Description string   `json:"description" toml:"description"`
}

// ─── Leaderboard Types ──────────────────────────────────────────────────────

// LeaderboardType defines the scope of a leaderboard.
type LeaderboardType string

const (
	LeaderboardMonthly LeaderboardType = "monthly"  // monthly league score
	LeaderboardAllTime LeaderboardType = "all_time" // lifetime total
)

// LeaderboardEntry represents a user's position on a leaderboard.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Score         int64  `json:"score"`
	TotalPoints   int64  `json:"total_points"`
	MonthlyPoints int64  `json:"monthly_points"`
	StreakLength  int    `json:"streak_length"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationKind selects the presenter style.
type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

// Notification is a single toast delivered to a user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}
