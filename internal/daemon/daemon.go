package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/aura-network/aura/internal/api"
	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/app/leaderboard"
	"github.com/aura-network/aura/internal/app/ledger"
	"github.com/aura-network/aura/internal/app/productivity"
	"github.com/aura-network/aura/internal/app/shop"
	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/clock"
	"github.com/aura-network/aura/internal/infra/notify"
	"github.com/aura-network/aura/internal/infra/remote"
	"github.com/aura-network/aura/internal/infra/sqlite"
)

// remoteStore is what the daemon needs from a remote backend.
type remoteStore interface {
	domain.RemoteRecords
	domain.RecordLister
}

// Daemon owns every long-lived component of a running Aura node.
type Daemon struct {
	cfg     Config
	version string
	log     *zap.Logger

	db          *sqlite.DB
	remote      remoteStore
	closeRemote func()
	catalog     *achievement.Catalog
	watcher     *CatalogWatcher
	hub         *notify.Hub

	ledgers      *ledger.Registry
	productivity *productivity.Service
	shop         *shop.Service
	leaderboard  *leaderboard.Service
	server       *api.Server
}

// NewLogger builds the daemon's zap logger at the given level.
func NewLogger(level string, debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		level = "debug"
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

// New opens storage, connects the remote store and builds the services.
// The caller must Close the daemon.
func New(ctx context.Context, cfg Config, version string, log *zap.Logger) (*Daemon, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Daemon{cfg: cfg, version: version, log: log}
	ok := false
	defer func() {
		if !ok {
			d.Close()
		}
	}()

	// Local store
	if err := os.MkdirAll(cfg.Storage.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	d.db = db

	clk, err := clock.New(cfg.Calendar.Timezone)
	if err != nil {
		return nil, err
	}

	// Remote store
	switch cfg.Remote.Driver {
	case "postgres":
		pg, err := remote.OpenPostgres(ctx, cfg.Remote.DSN, cfg.Remote.MaxConns, log)
		if err != nil {
			return nil, err
		}
		d.remote, d.closeRemote = pg, pg.Close
	default:
		mem := remote.NewMemory()
		if err := seedMemory(ctx, db, mem); err != nil {
			return nil, err
		}
		d.remote = mem
	}

	// Achievement catalog
	defs := cfg.achievementDefinitions()
	if path := cfg.Catalog.AchievementsFile; path != "" {
		if defs, err = LoadAchievementFile(path); err != nil {
			return nil, err
		}
	}
	if d.catalog, err = achievement.NewCatalog(defs); err != nil {
		return nil, fmt.Errorf("achievements: %w", err)
	}
	if path := cfg.Catalog.AchievementsFile; path != "" {
		debounce, _ := cfg.catalogDebounce()
		if d.watcher, err = NewCatalogWatcher(path, d.catalog, debounce, log); err != nil {
			return nil, err
		}
	}

	d.hub = notify.NewHub(db, log)
	d.ledgers = ledger.NewRegistry(ledger.Deps{
		Local:        db,
		Remote:       d.remote,
		Notifier:     d.hub,
		Clock:        clk,
		Audit:        db,
		Achievements: d.catalog,
		Logger:       log,
	}, db)

	d.productivity = productivity.New(d.ledgers, db, cfg.Rewards, log)
	if d.shop, err = shop.New(d.ledgers, cfg.shopItems(), log); err != nil {
		return nil, err
	}
	d.leaderboard = leaderboard.New(d.remote, clk, log)

	d.server = api.NewServer(api.Services{
		Ledgers:       d.ledgers,
		Productivity:  d.productivity,
		Shop:          d.shop,
		Leaderboard:   d.leaderboard,
		Achievements:  d.catalog,
		Notifications: d.hub,
		Audit:         db,
	}, version, log)
	if cfg.Metrics.Enabled {
		d.server.EnableMetrics()
	}
	timeout, _ := cfg.requestTimeout()
	d.server.SetRequestTimeout(timeout)

	ok = true
	return d, nil
}

// seedMemory loads every locally stored ledger into an in-memory remote so
// a single node ranks all of its users, not only those touched since start.
func seedMemory(ctx context.Context, db *sqlite.DB, mem *remote.Memory) error {
	keys, err := db.Keys(ctx, ledger.LocalKey(""))
	if err != nil {
		return fmt.Errorf("list local ledgers: %w", err)
	}
	for _, key := range keys {
		raw, ok, err := db.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var state domain.LedgerState
		if err := json.Unmarshal(raw, &state); err != nil {
			continue
		}
		userID := strings.TrimPrefix(key, ledger.LocalKey(""))
		if _, err := mem.Update(ctx, userID, state.Fields()); err != nil {
			return err
		}
	}
	return nil
}

// Ledgers returns the per-user ledger registry.
func (d *Daemon) Ledgers() *ledger.Registry { return d.ledgers }

// Productivity returns the task and focus-session service.
func (d *Daemon) Productivity() *productivity.Service { return d.productivity }

// Shop returns the shop service.
func (d *Daemon) Shop() *shop.Service { return d.shop }

// Leaderboard returns the leaderboard service.
func (d *Daemon) Leaderboard() *leaderboard.Service { return d.leaderboard }

// Handler returns the HTTP handler.
func (d *Daemon) Handler() http.Handler { return d.server.Handler() }

// Run serves the API and runs the catalog watcher until ctx is cancelled,
// then shuts the HTTP server down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// Request contexts end when shutdown starts so live feeds let go.
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:              d.cfg.API.Addr(),
		Handler:           d.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancelBase)

	g.Go(func() error {
		d.log.Info("aura listening",
			zap.String("addr", srv.Addr),
			zap.String("remote", d.cfg.Remote.Driver),
			zap.String("version", d.version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if d.watcher != nil {
		g.Go(func() error { return d.watcher.Run(ctx) })
	}

	return g.Wait()
}

// Close releases subscriptions, the remote pool and the local database.
func (d *Daemon) Close() error {
	if d.watcher != nil {
		d.watcher.Close()
	}
	if d.ledgers != nil {
		d.ledgers.Close()
	}
	if d.closeRemote != nil {
		d.closeRemote()
	}
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
