package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aura-network/aura/internal/app/ledger"
	"github.com/aura-network/aura/internal/domain"
)

func newTestDaemon(t *testing.T, mutate func(*Config)) *Daemon {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Storage.Dir = filepath.Join(t.TempDir(), "data")
	cfg.Metrics.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := New(context.Background(), cfg, "test", nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDaemon_ServesLedger(t *testing.T) {
	d := newTestDaemon(t, nil)
	h := d.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/users/u1/tasks", strings.NewReader(`{"text":"ship it"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("add task = %d: %s", w.Code, w.Body)
	}
	var task domain.Task
	if err := json.NewDecoder(w.Body).Decode(&task); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/users/u1/tasks/"+task.ID+"/complete", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("complete task = %d: %s", w.Code, w.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/users/u1/ledger", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var view struct {
		TotalPoints int64 `json:"total_points"`
		StreakCount int   `json:"streak_count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	// 10 for the task + 50 for the first-task achievement.
	if view.TotalPoints != 60 || view.StreakCount != 1 {
		t.Errorf("ledger = %+v, want 60 points and streak 1", view)
	}
}

func TestDaemon_LedgerLoggerName(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := DefaultConfig()
	cfg.Storage.Dir = filepath.Join(t.TempDir(), "data")
	cfg.Metrics.Enabled = false
	d, err := New(context.Background(), cfg, "test", zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	e, err := d.Ledgers().Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.RecordActivity(context.Background(), ledger.Activity{Points: 1}); err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("daily activity").All()
	if len(entries) == 0 {
		t.Fatal("no daily activity log entry")
	}
	for _, en := range entries {
		if en.LoggerName != "ledger" {
			t.Errorf("engine logger name = %q, want %q", en.LoggerName, "ledger")
		}
	}
}

func TestDaemon_PersistsAcrossRestarts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	cfg := DefaultConfig()
	cfg.Storage.Dir = dir

	d, err := New(context.Background(), cfg, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	e, err := d.Ledgers().Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.EarnPoints(context.Background(), 42, "seed"); err != nil {
		t.Fatal(err)
	}
	d.Close()

	d2, err := New(context.Background(), cfg, "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer d2.Close()

	board, err := d2.Leaderboard().Board(context.Background(), domain.LeaderboardAllTime, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(board) != 1 || board[0].UserID != "u1" || board[0].Score != 42 {
		t.Errorf("leaderboard after restart = %+v, want u1 with 42", board)
	}

	e2, err := d2.Ledgers().Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got := e2.State().TotalPoints; got != 42 {
		t.Errorf("TotalPoints after restart = %d, want 42", got)
	}
}

func TestDaemon_CatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achievements.toml")
	writeFile(t, path, catalogV1)

	d := newTestDaemon(t, func(c *Config) { c.Catalog.AchievementsFile = path })
	if got := len(d.catalog.Definitions()); got != 1 {
		t.Errorf("catalog size = %d, want 1 from file", got)
	}
	if d.watcher == nil {
		t.Error("watcher should be running for a catalog file")
	}
}

func TestDaemon_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Dir = t.TempDir()
	cfg.Remote.Driver = "carrier-pigeon"
	if _, err := New(context.Background(), cfg, "test", nil); err == nil {
		t.Error("expected error for unknown remote driver")
	}
}
