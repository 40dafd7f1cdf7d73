package ledger

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/observability"
)

// ─── Streaks ────────────────────────────────────────────────────────────────

// StreakChange describes what a daily activity did to the streak.
type StreakChange struct {
	Before     int  `json:"before"`
	After      int  `json:"after"`
	FreezeUsed bool `json:"freeze_used"`
	Reset      bool `json:"reset"`
	NoOp       bool `json:"no_op"`
}

// Increased reports whether the streak grew, for the "streak increased" cue.
func (c StreakChange) Increased() bool { return c.After > c.Before }

// RecordDailyActivity credits today to the streak. Repeat calls on the same
// local date are no-ops. A gap of more than one day consumes one streak
// freeze if owned, otherwise the streak restarts at 1.
func (e *Engine) RecordDailyActivity(ctx context.Context) StreakChange {
	e.mu.Lock()
	defer e.mu.Unlock()

	change := e.recordDay()
	if change.NoOp {
		return change
	}
	e.applyAchievements(ctx)
	e.persist(ctx)
	return change
}

// recordDay applies the streak rules to the in-memory state only.
func (e *Engine) recordDay() StreakChange {
	today := e.deps.Clock.Today()
	change := StreakChange{Before: e.state.StreakCount}

	outcome := "extended"
	switch last := e.state.LastActiveDate; {
	case last == today:
		change.NoOp = true
	case last == "":
		e.state.StreakCount++
		outcome = "started"
	default:
		gap, err := domain.DaysBetween(last, today)
		switch {
		case err != nil:
			e.log.Warn("unreadable last active date, restarting streak", zap.String("last_active", last), zap.Error(err))
			e.state.StreakCount = 1
			change.Reset = true
			outcome = "reset"
		case gap <= 0:
			// Last activity is dated after today (clock moved back).
			change.NoOp = true
		case gap == 1:
			e.state.StreakCount++
		case e.state.Inventory.Count(domain.ItemStreakFreeze) > 0:
			_ = e.consume(domain.ItemStreakFreeze)
			e.state.StreakCount++
			change.FreezeUsed = true
			outcome = "bridged"
			e.notify("Streak Frozen", "A Streak Freeze covered the missed days.", domain.NotifyInfo)
		default:
			e.state.StreakCount = 1
			change.Reset = true
			outcome = "reset"
		}
	}

	if change.NoOp {
		observability.StreakEvents.WithLabelValues("noop").Inc()
		change.After = change.Before
		return change
	}
	e.state.LastActiveDate = today
	change.After = e.state.StreakCount

	observability.StreakEvents.WithLabelValues(outcome).Inc()
	observability.StreakLength.Observe(float64(change.After))
	e.log.Debug("daily activity",
		zap.String("outcome", outcome),
		zap.Int("before", change.Before),
		zap.Int("after", change.After))
	return change
}

// CanRestoreStreak reports whether a streak restore would change anything:
// the last activity is older than yesterday.
func (e *Engine) CanRestoreStreak() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restorable() == nil
}

func (e *Engine) restorable() error {
	last := e.state.LastActiveDate
	if last == "" {
		return domain.ErrStreakIntact
	}
	today := e.deps.Clock.Today()
	yesterday, err := domain.PrevDay(today)
	if err != nil {
		return err
	}
	if last == today || last == yesterday {
		return domain.ErrStreakIntact
	}
	if gap, err := domain.DaysBetween(last, today); err == nil && gap <= 0 {
		return domain.ErrStreakIntact
	}
	return nil
}

// RestoreStreak back-dates the last activity to yesterday so the next
// activity continues the streak. It is the purchase-time repair and never
// touches the freeze inventory.
func (e *Engine) RestoreStreak(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.restore(); err != nil {
		return err
	}
	e.persist(ctx)
	return nil
}

func (e *Engine) restore() error {
	if err := e.restorable(); err != nil {
		return err
	}
	yesterday, _ := domain.PrevDay(e.deps.Clock.Today())
	e.state.LastActiveDate = yesterday
	observability.StreakRestores.Inc()
	e.notify("Streak Repaired", "Timeline bridged.", domain.NotifySuccess)
	return nil
}

// ─── Purchases ──────────────────────────────────────────────────────────────

// Purchase is a shop order applied to the ledger as one operation.
type Purchase struct {
	ItemID    string
	Cost      int64
	Reason    string
	Permanent bool // at most one unit may be owned
}

// Buy validates, debits and delivers a purchase under one lock, so a
// rejected order leaves the ledger untouched. restore_streak is applied
// immediately instead of being stored.
func (e *Engine) Buy(ctx context.Context, p Purchase) error {
	if p.ItemID == "" {
		return domain.ErrInvalidItem
	}
	if p.Cost <= 0 {
		return domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case p.ItemID == domain.ItemRestoreStreak:
		if err := e.restorable(); err != nil {
			return err
		}
	case p.Permanent && e.state.Inventory.Count(p.ItemID) > 0:
		return domain.ErrItemAlreadyOwned
	}

	if err := e.debit(ctx, p.Cost, p.Reason); err != nil {
		return err
	}
	if p.ItemID == domain.ItemRestoreStreak {
		if err := e.restore(); err != nil {
			return err
		}
	} else {
		e.state.Inventory[p.ItemID]++
	}
	e.persist(ctx)
	return nil
}

// ─── Productivity Activity ──────────────────────────────────────────────────

// Activity is one completed unit of productive work.
type Activity struct {
	Tasks    int64
	Sessions int64
	Minutes  int64
	Points   int64  // may be 0
	Reason   string // audit and notification label
}

// ActivityResult reports what an activity did.
type ActivityResult struct {
	Streak       StreakChange                   `json:"streak"`
	PointsEarned int64                          `json:"points_earned"`
	Unlocked     []domain.AchievementDefinition `json:"unlocked"`
}

// RecordActivity bumps the activity counters, credits today to the streak,
// earns the activity's points and evaluates achievements, persisting once.
func (e *Engine) RecordActivity(ctx context.Context, a Activity) (ActivityResult, error) {
	if a.Tasks < 0 || a.Sessions < 0 || a.Minutes < 0 || a.Points < 0 {
		return ActivityResult{}, domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state.Stats
	if a.Points > e.headroom() ||
		a.Tasks > math.MaxInt64-max(st.TotalTasks, 0) ||
		a.Sessions > math.MaxInt64-max(st.TotalSessions, 0) ||
		a.Minutes > math.MaxInt64-max(st.TotalMinutes, 0) {
		observability.RejectedOperations.WithLabelValues("activity", "overflow").Inc()
		return ActivityResult{}, domain.ErrInvalidAmount
	}

	e.state.Stats.TotalTasks += a.Tasks
	e.state.Stats.TotalSessions += a.Sessions
	e.state.Stats.TotalMinutes += a.Minutes

	res := ActivityResult{Streak: e.recordDay()}
	if a.Points > 0 {
		e.credit(ctx, a.Points, domain.TxEarn, a.Reason)
		observability.PointsCredited.WithLabelValues("earn").Add(float64(a.Points))
		e.notify(fmt.Sprintf("+%d Points!", a.Points), a.Reason, domain.NotifySuccess)
		res.PointsEarned = a.Points
	}
	res.Unlocked = e.applyAchievements(ctx)
	e.persist(ctx)
	return res, nil
}
