package remote

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/aura-network/aura/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ─── Memory Store ───────────────────────────────────────────────────────────

func TestMemory_UpdateMergesPartialFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	v1, err := m.Update(ctx, "u1", map[string]any{"totalPoints": 10, "streakCount": 1})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	v2, err := m.Update(ctx, "u1", map[string]any{"totalPoints": 25})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if v2 <= v1 {
		t.Errorf("version did not increase: %d then %d", v1, v2)
	}

	rec, err := m.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(rec.Fields["totalPoints"]) != "25" || string(rec.Fields["streakCount"]) != "1" {
		t.Errorf("fields = %v, want totalPoints=25 streakCount=1", rec.Fields)
	}
}

func TestMemory_GetMissing(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrRecordNotFound", err)
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Update(ctx, "u1", map[string]any{"totalPoints": 1})

	rec, _ := m.Get(ctx, "u1")
	rec.Fields["totalPoints"] = json.RawMessage("999")

	again, _ := m.Get(ctx, "u1")
	if string(again.Fields["totalPoints"]) != "1" {
		t.Error("mutating a returned record changed the store")
	}
}

func TestMemory_ListAndDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Update(ctx, "b", map[string]any{"totalPoints": 1})
	m.Update(ctx, "a", map[string]any{"totalPoints": 2})

	recs, _ := m.List(ctx)
	if len(recs) != 2 || recs[0].UserID != "a" {
		t.Fatalf("List() = %+v, want sorted a,b", recs)
	}

	m.Delete(ctx, "a")
	recs, _ = m.List(ctx)
	if len(recs) != 1 || recs[0].UserID != "b" {
		t.Errorf("after Delete, List() = %+v", recs)
	}
}

func TestMemory_FailUpdates(t *testing.T) {
	m := NewMemory()
	m.FailUpdates = errors.New("offline")
	if _, err := m.Update(context.Background(), "u1", map[string]any{"x": 1}); err == nil {
		t.Error("expected injected failure")
	}
}

func TestMemory_SubscribeDeliversChanges(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	got := make(chan domain.RemoteRecord, 8)
	sub, err := m.Subscribe(ctx, "u1", func(r domain.RemoteRecord) { got <- r })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	m.Update(ctx, "u2", map[string]any{"totalPoints": 1}) // other user: not delivered
	m.Update(ctx, "u1", map[string]any{"totalPoints": 7})

	select {
	case r := <-got:
		if r.UserID != "u1" || string(r.Fields["totalPoints"]) != "7" {
			t.Errorf("delivered %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
	}
}

func TestMemory_SubscriptionStopsOnContextCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	sub, _ := m.Subscribe(ctx, "u1", func(domain.RemoteRecord) {})
	cancel()
	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}

	m.mu.Lock()
	n := len(m.subs)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("subscribers remain after cancel: %d", n)
	}
}

// ─── PostgreSQL Store ───────────────────────────────────────────────────────

func TestPostgres_RoundTrip(t *testing.T) {
	dsn := os.Getenv("AURA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AURA_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	p, err := OpenPostgres(ctx, dsn, 4, nil)
	if err != nil {
		t.Fatalf("OpenPostgres() error: %v", err)
	}
	defer p.Close()

	user := "test-" + time.Now().Format("150405.000000")
	defer p.Delete(ctx, user)

	got := make(chan domain.RemoteRecord, 4)
	sub, err := p.Subscribe(ctx, user, func(r domain.RemoteRecord) { got <- r })
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	time.Sleep(200 * time.Millisecond) // let LISTEN register

	if _, err := p.Update(ctx, user, map[string]any{"totalPoints": 5, "streakCount": 2}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if _, err := p.Update(ctx, user, map[string]any{"totalPoints": 9}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	rec, err := p.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(rec.Fields["totalPoints"]) != "9" || string(rec.Fields["streakCount"]) != "2" {
		t.Errorf("fields = %v", rec.Fields)
	}
	if rec.Version != 2 {
		t.Errorf("version = %d, want 2", rec.Version)
	}

	select {
	case r := <-got:
		if r.UserID != user {
			t.Errorf("notification for %q", r.UserID)
		}
	case <-time.After(5 * time.Second):
		t.Error("no notification received")
	}
}
