// Package observability holds the Prometheus metrics for the ledger daemon.
//
// Metrics are package-level promauto collectors registered on the default
// registry and exposed on /metrics by the API server. Labels are kept to
// bounded sets: never a user id.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// PointsCredited tracks points added to ledgers by source ("earn", "achievement").
var PointsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "ledger",
	Name:      "points_credited_total",
	Help:      "Total points credited to ledgers by source.",
}, []string{"source"})

// PointsSpent tracks points removed from ledgers by spends.
var PointsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "ledger",
	Name:      "points_spent_total",
	Help:      "Total points spent from ledgers.",
})

// RejectedOperations tracks operations refused by validation.
var RejectedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "ledger",
	Name:      "rejected_operations_total",
	Help:      "Total ledger operations rejected before mutation, by operation and reason.",
}, []string{"operation", "reason"})

// MonthlyResets tracks lazy monthly league resets.
var MonthlyResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "ledger",
	Name:      "monthly_resets_total",
	Help:      "Total lazy monthly score resets applied on earning.",
})

// ─── Streak Metrics ─────────────────────────────────────────────────────────

// StreakEvents tracks daily-activity outcomes
// ("started", "extended", "bridged", "reset", "noop").
var StreakEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "streak",
	Name:      "events_total",
	Help:      "Total daily-activity outcomes by kind.",
}, []string{"outcome"})

// StreakRestores tracks streak restores bought in the shop.
var StreakRestores = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "streak",
	Name:      "restores_total",
	Help:      "Total streaks back-dated by a restore purchase.",
})

// StreakLength tracks the streak length observed after each credited day.
var StreakLength = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "aura",
	Subsystem: "streak",
	Name:      "length_days",
	Help:      "Streak length after each credited day.",
	Buckets:   []float64{1, 2, 3, 5, 7, 14, 30, 60, 100, 365},
})

// ─── Achievement Metrics ────────────────────────────────────────────────────

// AchievementsUnlocked tracks unlocks by achievement id (catalog-bounded).
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "achievements",
	Name:      "unlocked_total",
	Help:      "Total achievement unlocks by achievement id.",
}, []string{"achievement"})

// CatalogReloads tracks achievement catalog hot reloads by result.
var CatalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "achievements",
	Name:      "catalog_reloads_total",
	Help:      "Total achievement catalog reloads by result.",
}, []string{"result"})

// ─── Shop Metrics ───────────────────────────────────────────────────────────

// ShopPurchases tracks purchases by item id (catalog-bounded).
var ShopPurchases = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "shop",
	Name:      "purchases_total",
	Help:      "Total shop purchases by item id.",
}, []string{"item"})

// ─── Persistence & Sync Metrics ─────────────────────────────────────────────

// PersistenceWarnings tracks failed writes by store ("local", "remote", "audit").
var PersistenceWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "persistence",
	Name:      "warnings_total",
	Help:      "Total non-fatal persistence failures by store.",
}, []string{"store"})

// RemoteMerges tracks inbound remote snapshots by result ("applied", "unchanged", "error").
var RemoteMerges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "sync",
	Name:      "remote_merges_total",
	Help:      "Total inbound remote snapshots merged into local ledgers by result.",
}, []string{"result"})

// ActiveSessions tracks ledgers currently held in memory.
var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aura",
	Subsystem: "sync",
	Name:      "active_sessions",
	Help:      "Number of user ledgers loaded in memory.",
})

// ─── Notification Metrics ───────────────────────────────────────────────────

// NotificationsSent tracks notifications by kind.
var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "notify",
	Name:      "sent_total",
	Help:      "Total notifications presented by kind.",
}, []string{"kind"})

// NotificationsDropped tracks notifications dropped for slow live clients.
var NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "aura",
	Subsystem: "notify",
	Name:      "dropped_total",
	Help:      "Total live notifications dropped because a client was too slow.",
})
