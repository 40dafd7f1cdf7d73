package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aura-network/aura/internal/app/achievement"
)

const catalogV1 = `
[[achievements]]
id = "ach_one"
title = "One"
metric = "total_tasks"
threshold = 1
reward = 10
`

const catalogV2 = `
[[achievements]]
id = "ach_one"
title = "One"
metric = "total_tasks"
threshold = 1
reward = 10

[[achievements]]
id = "ach_two"
title = "Two"
metric = "streak"
threshold = 2
reward = 20
`

func TestLoadAchievementFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achievements.toml")
	writeFile(t, path, catalogV2)

	defs, err := LoadAchievementFile(path)
	if err != nil {
		t.Fatalf("LoadAchievementFile() error: %v", err)
	}
	if len(defs) != 2 || defs[1].ID != "ach_two" || defs[1].Reward != 20 {
		t.Errorf("defs = %+v", defs)
	}

	writeFile(t, path, "[[achievements]]\nid = \"x\"\nmetric = \"karma\"\n")
	if _, err := LoadAchievementFile(path); err == nil {
		t.Error("expected validation error for unknown metric")
	}
}

func TestCatalogWatcher_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achievements.toml")
	writeFile(t, path, catalogV1)
	defs, _ := LoadAchievementFile(path)
	cat, _ := achievement.NewCatalog(defs)

	cw, err := NewCatalogWatcher(path, cat, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cw.Close()

	writeFile(t, path, "not = [valid")
	if cw.Reload() {
		t.Error("Reload() should fail on a broken file")
	}
	if got := len(cat.Definitions()); got != 1 {
		t.Errorf("catalog size = %d, want previous 1", got)
	}

	writeFile(t, path, catalogV2)
	if !cw.Reload() {
		t.Fatal("Reload() should succeed")
	}
	if got := len(cat.Definitions()); got != 2 {
		t.Errorf("catalog size = %d, want 2", got)
	}
}

func TestCatalogWatcher_RunPicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "achievements.toml")
	writeFile(t, path, catalogV1)
	defs, _ := LoadAchievementFile(path)
	cat, _ := achievement.NewCatalog(defs)

	cw, err := NewCatalogWatcher(path, cat, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cw.Run(ctx) }()

	writeFile(t, path, catalogV2)

	deadline := time.Now().Add(5 * time.Second)
	for len(cat.Definitions()) != 2 {
		if time.Now().After(deadline) {
			t.Fatal("catalog was not reloaded after the file changed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}
