package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/observability"
)

// Eraser removes a user's auxiliary data (audit trail, inbox) on account
// deletion.
type Eraser interface {
	EraseUser(ctx context.Context, userID string) error
}

// ─── Registry ───────────────────────────────────────────────────────────────

// Registry holds one Engine per user, loading each lazily and keeping it
// subscribed to its remote record.
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine
	subs    map[string]domain.Subscription
	deps    Deps
	erasers []Eraser
	log     *zap.Logger

	// subCtx bounds remote subscriptions; cancelled by Close.
	subCtx    context.Context
	subCancel context.CancelFunc
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps, erasers ...Eraser) *Registry {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
		deps.Logger = log
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		engines:   make(map[string]*Engine),
		subs:      make(map[string]domain.Subscription),
		deps:      deps,
		erasers:   erasers,
		log:       log.Named("registry"),
		subCtx:    ctx,
		subCancel: cancel,
	}
}

// Get returns the user's engine, loading it on first use: the local copy
// first, reconciled with the remote record, else a fresh ledger for the
// current month.
func (r *Registry) Get(ctx context.Context, userID string) (*Engine, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[userID]; ok {
		return e, nil
	}

	e, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.engines[userID] = e
	observability.ActiveSessions.Inc()

	if r.deps.Remote != nil {
		sub, err := r.deps.Remote.Subscribe(r.subCtx, userID, func(rec domain.RemoteRecord) {
			if _, err := e.ApplyRemote(r.subCtx, rec); err != nil {
				r.log.Warn("apply remote change", zap.String("user", userID), zap.Error(err))
			}
		})
		if err != nil {
			r.log.Warn("subscribe to remote record", zap.String("user", userID), zap.Error(err))
		} else {
			r.subs[userID] = sub
		}
	}
	return e, nil
}

func (r *Registry) load(ctx context.Context, userID string) (*Engine, error) {
	var (
		state     domain.LedgerState
		haveLocal bool
	)

	raw, ok, err := r.deps.Local.Get(ctx, LocalKey(userID))
	switch {
	case err != nil:
		r.log.Warn("read local ledger", zap.String("user", userID), zap.Error(err))
	case ok:
		if err := json.Unmarshal(raw, &state); err != nil {
			r.log.Warn("decode local ledger", zap.String("user", userID), zap.Error(err))
		} else {
			haveLocal = true
		}
	}

	var rec *domain.RemoteRecord
	if r.deps.Remote != nil {
		got, err := r.deps.Remote.Get(ctx, userID)
		switch {
		case err == nil:
			rec = &got
		case !errors.Is(err, domain.ErrRecordNotFound):
			r.log.Warn("read remote ledger", zap.String("user", userID), zap.Error(err))
		}
	}

	switch {
	case haveLocal:
		e := New(userID, state, r.deps)
		e.seenVersion = state.SyncedVersion
		switch {
		case state.Dirty && (rec == nil || rec.Version <= state.SyncedVersion):
			// The remote never accepted the newest local changes and
			// nothing newer was written since: push them up.
			r.log.Info("pushing unsynced local ledger", zap.String("user", userID),
				zap.Int64("synced_version", state.SyncedVersion))
			e.mu.Lock()
			e.persist(ctx)
			e.mu.Unlock()
		case rec != nil:
			if state.Dirty {
				r.log.Warn("unsynced local changes superseded by newer remote record",
					zap.String("user", userID), zap.Int64("remote_version", rec.Version))
			}
			if _, err := e.ApplyRemote(ctx, *rec); err != nil {
				r.log.Warn("reconcile remote ledger", zap.String("user", userID), zap.Error(err))
			}
		}
		r.log.Debug("ledger loaded", zap.String("user", userID), zap.String("source", "local"))
		return e, nil

	case rec != nil:
		state = domain.NewLedgerState("")
		if _, err := state.MergeFields(rec.Fields); err != nil {
			return nil, fmt.Errorf("decode remote ledger for %s: %w", userID, err)
		}
		state.SyncedVersion = rec.Version
		e := New(userID, state, r.deps)
		e.seenVersion = rec.Version
		e.persistLocal(ctx)
		r.log.Debug("ledger loaded", zap.String("user", userID), zap.String("source", "remote"))
		return e, nil

	default:
		e := New(userID, domain.NewLedgerState(r.deps.Clock.Month()), r.deps)
		e.persist(ctx)
		r.log.Info("ledger created", zap.String("user", userID))
		return e, nil
	}
}

// Loaded returns the ids of users with an engine in memory, sorted.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete destroys a user's ledger everywhere: memory, local store, remote
// record and any auxiliary data.
func (r *Registry) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}

	r.mu.Lock()
	if sub, ok := r.subs[userID]; ok {
		sub.Close()
		delete(r.subs, userID)
	}
	e, ok := r.engines[userID]
	if ok {
		delete(r.engines, userID)
		observability.ActiveSessions.Dec()
	}
	r.mu.Unlock()

	// Requests still holding the engine must not write the ledger back.
	if e != nil {
		e.markDeleted()
	}

	var errs []error
	if err := r.deps.Local.Delete(ctx, LocalKey(userID)); err != nil {
		errs = append(errs, fmt.Errorf("local: %w", err))
	}
	if r.deps.Remote != nil {
		if err := r.deps.Remote.Delete(ctx, userID); err != nil {
			errs = append(errs, fmt.Errorf("remote: %w", err))
		}
	}
	for _, er := range r.erasers {
		if err := er.EraseUser(ctx, userID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("delete ledger %s: %w", userID, err)
	}
	r.log.Info("ledger deleted", zap.String("user", userID))
	return nil
}

// Close ends every remote subscription. Engines stay usable.
func (r *Registry) Close() {
	r.subCancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sub := range r.subs {
		sub.Close()
		delete(r.subs, id)
	}
}
