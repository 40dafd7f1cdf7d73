// Package ledger is the streak and points reconciliation engine. One Engine
// owns one user's LedgerState; every operation runs to completion under the
// engine's lock, persists once, and never rolls back on a failed write.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/observability"
)

// LocalKey is the local-store key holding a user's serialized ledger.
func LocalKey(userID string) string { return "ledger:" + userID }

// Deps are the collaborators an Engine talks to. Local and Clock are
// required; the rest may be nil.
type Deps struct {
	Local        domain.KVStore
	Remote       domain.RemoteRecords
	Notifier     domain.Notifier
	Clock        domain.Clock
	Audit        domain.AuditLog
	Achievements achievement.Source
	Logger       *zap.Logger
}

// Engine is the session context for one user's ledger.
type Engine struct {
	mu     sync.Mutex
	userID string
	state  domain.LedgerState
	deps   Deps
	log    *zap.Logger
	now    func() time.Time

	// seenVersion is the newest remote version written or merged; inbound
	// records at or below it are echoes of state already held.
	seenVersion int64

	// deleted is set by Registry.Delete; a deleted engine never writes.
	deleted bool
}

// New creates an engine around an existing state.
func New(userID string, state domain.LedgerState, deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if state.Inventory == nil {
		state.Inventory = make(domain.Inventory)
	}
	if state.UnlockedAchievements == nil {
		state.UnlockedAchievements = []string{}
	}
	return &Engine{
		userID: userID,
		state:  state,
		deps:   deps,
		log:    log.Named("ledger").With(zap.String("user", userID)),
		now:    time.Now,
	}
}

// UserID returns the ledger owner.
func (e *Engine) UserID() string { return e.userID }

// State returns a copy of the raw ledger state.
func (e *Engine) State() domain.LedgerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// View returns the display form of the ledger for today.
func (e *Engine) View() domain.LedgerView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.View(e.userID, e.deps.Clock.Today())
}

// Snapshot returns the achievement-predicate view of the ledger as of today.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot(e.deps.Clock.Today())
}

// MonthlyScore is the monthly league score as of today: zero when the
// month has rolled over without an earning event, never above the total.
func (e *Engine) MonthlyScore() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.RankedMonthly(e.deps.Clock.Month())
}

// ─── Points ─────────────────────────────────────────────────────────────────

// EarnPoints credits amount to both the total and the monthly score, then
// evaluates achievements.
func (e *Engine) EarnPoints(ctx context.Context, amount int64, reason string) error {
	if amount <= 0 {
		observability.RejectedOperations.WithLabelValues("earn", "invalid_amount").Inc()
		return domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if amount > e.headroom() {
		observability.RejectedOperations.WithLabelValues("earn", "overflow").Inc()
		return domain.ErrInvalidAmount
	}
	e.credit(ctx, amount, domain.TxEarn, reason)
	observability.PointsCredited.WithLabelValues("earn").Add(float64(amount))
	e.notify(fmt.Sprintf("+%d Points!", amount), reason, domain.NotifySuccess)

	e.applyAchievements(ctx)
	e.persist(ctx)
	return nil
}

// SpendPoints debits the lifetime total. The monthly score is gross and is
// not reduced.
func (e *Engine) SpendPoints(ctx context.Context, amount int64, reason string) error {
	if amount <= 0 {
		observability.RejectedOperations.WithLabelValues("spend", "invalid_amount").Inc()
		return domain.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.debit(ctx, amount, reason); err != nil {
		return err
	}
	e.persist(ctx)
	return nil
}

// credit applies the lazy monthly reset and adds amount to both counters.
func (e *Engine) credit(ctx context.Context, amount int64, tx domain.TransactionType, reason string) {
	month := e.deps.Clock.Month()
	if e.state.ActiveMonth != month {
		e.log.Info("monthly reset",
			zap.String("from", e.state.ActiveMonth),
			zap.String("to", month),
			zap.Int64("monthly_points", e.state.MonthlyPoints))
		e.state.MonthlyPoints = 0
		e.state.ActiveMonth = month
		observability.MonthlyResets.Inc()
	}
	e.state.TotalPoints += amount
	e.state.MonthlyPoints += amount

	e.audit(ctx, tx, domain.EntryCredit, amount, reason)
}

// headroom is the largest credit both point counters can absorb.
func (e *Engine) headroom() int64 {
	monthly := e.state.MonthlyPoints
	if e.state.ActiveMonth != e.deps.Clock.Month() {
		monthly = 0
	}
	return math.MaxInt64 - max(e.state.TotalPoints, monthly, 0)
}

func (e *Engine) debit(ctx context.Context, amount int64, reason string) error {
	if e.state.TotalPoints < amount {
		observability.RejectedOperations.WithLabelValues("spend", "insufficient_balance").Inc()
		return domain.ErrInsufficientBalance
	}
	e.state.TotalPoints -= amount
	observability.PointsSpent.Add(float64(amount))
	e.audit(ctx, domain.TxSpend, domain.EntryDebit, amount, reason)
	return nil
}

func (e *Engine) audit(ctx context.Context, tx domain.TransactionType, side domain.EntryType, amount int64, reason string) {
	if e.deps.Audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		UserID:    e.userID,
		Timestamp: e.now().UTC(),
		Type:      tx,
		EntryType: side,
		Amount:    amount,
		Reason:    reason,
		Balance:   e.state.TotalPoints,
	}
	if err := e.deps.Audit.AppendAudit(ctx, entry); err != nil {
		e.warn(&domain.PersistenceWarning{Store: "audit", UserID: e.userID, Err: err})
	}
}

// ─── Inventory ──────────────────────────────────────────────────────────────

// GrantItem adds one unit of itemID to the inventory.
func (e *Engine) GrantItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return domain.ErrInvalidItem
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Inventory[itemID]++
	e.persist(ctx)
	return nil
}

// ConsumeItem removes one unit of itemID from the inventory.
func (e *Engine) ConsumeItem(ctx context.Context, itemID string) error {
	if itemID == "" {
		return domain.ErrInvalidItem
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.consume(itemID); err != nil {
		observability.RejectedOperations.WithLabelValues("consume", "not_owned").Inc()
		return err
	}
	e.persist(ctx)
	return nil
}

func (e *Engine) consume(itemID string) error {
	n := e.state.Inventory.Count(itemID)
	if n <= 0 {
		return domain.ErrItemNotOwned
	}
	if n == 1 {
		delete(e.state.Inventory, itemID)
	} else {
		e.state.Inventory[itemID] = n - 1
	}
	return nil
}

// ─── Achievements ───────────────────────────────────────────────────────────

// EvaluateAchievements unlocks every satisfied achievement and returns the
// new unlocks. Calling it again without a state change unlocks nothing.
func (e *Engine) EvaluateAchievements(ctx context.Context) []domain.AchievementDefinition {
	e.mu.Lock()
	defer e.mu.Unlock()

	unlocked := e.applyAchievements(ctx)
	if len(unlocked) > 0 {
		e.persist(ctx)
	}
	return unlocked
}

// applyAchievements runs the evaluator to a fixed point: a reward can
// satisfy another definition (points thresholds), which is then granted in
// the same pass. Each reward goes through the monthly reset check.
func (e *Engine) applyAchievements(ctx context.Context) []domain.AchievementDefinition {
	if e.deps.Achievements == nil {
		return nil
	}
	defs := e.deps.Achievements.Definitions()

	var all []domain.AchievementDefinition
	for {
		snap := e.state.Snapshot(e.deps.Clock.Today())
		newly := achievement.Evaluate(snap, e.state.UnlockedAchievements, defs)
		if len(newly) == 0 {
			return all
		}
		for _, d := range newly {
			e.state.UnlockedAchievements = append(e.state.UnlockedAchievements, d.ID)
			switch {
			case d.Reward > e.headroom():
				observability.RejectedOperations.WithLabelValues("achievement", "overflow").Inc()
				e.log.Warn("achievement reward dropped: point counters full",
					zap.String("achievement", d.ID), zap.Int64("reward", d.Reward))
			case d.Reward > 0:
				e.credit(ctx, d.Reward, domain.TxBonus, "Achievement: "+d.Title)
				observability.PointsCredited.WithLabelValues("achievement").Add(float64(d.Reward))
			}
			observability.AchievementsUnlocked.WithLabelValues(d.ID).Inc()
			e.log.Info("achievement unlocked", zap.String("achievement", d.ID), zap.Int64("reward", d.Reward))
			e.notify("ACHIEVEMENT UNLOCKED",
				fmt.Sprintf("%s (+%d Credits)", d.Title, d.Reward), domain.NotifySuccess)
		}
		all = append(all, newly...)
	}
}

// ─── Persistence ────────────────────────────────────────────────────────────

// persist writes the full state locally and then to the remote record.
// The local copy is marked dirty until the remote accepts the write, so a
// restart after a failed sync pushes it up instead of losing it. Failures
// are reported as warnings; the in-memory state stands.
func (e *Engine) persist(ctx context.Context) {
	if e.deleted {
		return
	}
	if e.deps.Remote == nil {
		e.persistLocal(ctx)
		return
	}

	e.state.Dirty = true
	savedLocally := e.persistLocal(ctx)

	version, err := e.deps.Remote.Update(ctx, e.userID, e.state.Fields())
	if err != nil {
		e.warn(&domain.PersistenceWarning{Store: "remote", UserID: e.userID, Err: err})
		return
	}
	e.seenVersion = max(e.seenVersion, version)
	e.state.Dirty = false
	e.state.SyncedVersion = version
	if savedLocally {
		e.persistLocal(ctx)
	}
}

func (e *Engine) persistLocal(ctx context.Context) bool {
	if e.deleted {
		return false
	}
	data, err := json.Marshal(e.state)
	if err == nil {
		err = e.deps.Local.Set(ctx, LocalKey(e.userID), data)
	}
	if err != nil {
		e.warn(&domain.PersistenceWarning{Store: "local", UserID: e.userID, Err: err})
		return false
	}
	return true
}

// markDeleted stops all further writes from this engine.
func (e *Engine) markDeleted() {
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
}

func (e *Engine) warn(w *domain.PersistenceWarning) {
	observability.PersistenceWarnings.WithLabelValues(w.Store).Inc()
	e.log.Warn("persistence failed", zap.String("store", w.Store), zap.Error(w.Err))

	switch w.Store {
	case "local":
		e.notify("Save Failed", "Progress is kept for this session but could not be saved on this device.", domain.NotifyWarning)
	case "remote":
		e.notify("Sync Failed", "Progress saved on this device; cloud sync failed.", domain.NotifyWarning)
	}
}

func (e *Engine) notify(title, message string, kind domain.NotificationKind) {
	if e.deps.Notifier != nil {
		e.deps.Notifier.Notify(e.userID, title, message, kind)
	}
}

// ─── Remote Merge ───────────────────────────────────────────────────────────

// ApplyRemote merges an inbound remote record into the ledger, field by
// field, last writer wins. It never evaluates achievements and writes only
// to the local store. Records no newer than the last seen version are
// ignored. It reports whether the state changed.
func (e *Engine) ApplyRemote(ctx context.Context, rec domain.RemoteRecord) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rec.Version != 0 && rec.Version <= e.seenVersion {
		observability.RemoteMerges.WithLabelValues("stale").Inc()
		return false, nil
	}

	changed, err := e.state.MergeFields(rec.Fields)
	if err != nil {
		observability.RemoteMerges.WithLabelValues("error").Inc()
		e.log.Warn("remote merge rejected", zap.Int64("version", rec.Version), zap.Error(err))
		return false, err
	}
	e.seenVersion = max(e.seenVersion, rec.Version)

	resynced := e.state.Dirty || e.state.SyncedVersion != rec.Version
	e.state.Dirty = false
	e.state.SyncedVersion = rec.Version

	if !changed {
		observability.RemoteMerges.WithLabelValues("unchanged").Inc()
		if resynced {
			e.persistLocal(ctx)
		}
		return false, nil
	}
	observability.RemoteMerges.WithLabelValues("applied").Inc()
	e.log.Debug("remote merge applied", zap.Int64("version", rec.Version))
	e.persistLocal(ctx)
	return true, nil
}
