package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/observability"
)

// achievementFile is the on-disk layout of a standalone catalog file.
type achievementFile struct {
	Achievements []domain.AchievementDefinition `toml:"achievements"`
}

// LoadAchievementFile parses and validates a catalog file.
func LoadAchievementFile(path string) ([]domain.AchievementDefinition, error) {
	var f achievementFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := achievement.Validate(f.Achievements); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Achievements, nil
}

// ─── Catalog Watcher ────────────────────────────────────────────────────────
// Editors save by rename, so the watcher follows the parent directory and
// filters events for the catalog file. Bursts of events collapse into one
// reload after the debounce interval. A file that fails to parse leaves the
// previous catalog in place.

// CatalogWatcher hot-reloads an achievement catalog file.
type CatalogWatcher struct {
	path     string
	catalog  *achievement.Catalog
	debounce time.Duration
	log      *zap.Logger
	watcher  *fsnotify.Watcher
	once     sync.Once
}

// NewCatalogWatcher starts watching path's directory.
func NewCatalogWatcher(path string, catalog *achievement.Catalog, debounce time.Duration, log *zap.Logger) (*CatalogWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &CatalogWatcher{
		path:     abs,
		catalog:  catalog,
		debounce: debounce,
		log:      log.Named("catalog"),
		watcher:  w,
	}, nil
}

// Run processes file events until ctx is cancelled, then closes the watcher.
func (cw *CatalogWatcher) Run(ctx context.Context) error {
	defer cw.Close()

	timer := time.NewTimer(cw.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(cw.debounce)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil
			}
			cw.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			cw.Reload()
		}
	}
}

// Close stops watching. Safe to call more than once.
func (cw *CatalogWatcher) Close() error {
	var err error
	cw.once.Do(func() { err = cw.watcher.Close() })
	return err
}

// Reload re-reads the catalog file and swaps it into the catalog.
func (cw *CatalogWatcher) Reload() bool {
	defs, err := LoadAchievementFile(cw.path)
	if err == nil {
		err = cw.catalog.Replace(defs)
	}
	if err != nil {
		observability.CatalogReloads.WithLabelValues("error").Inc()
		cw.log.Warn("catalog reload failed; keeping previous catalog",
			zap.String("path", cw.path), zap.Error(err))
		return false
	}
	observability.CatalogReloads.WithLabelValues("ok").Inc()
	cw.log.Info("catalog reloaded", zap.String("path", cw.path), zap.Int("achievements", len(defs)))
	return true
}
