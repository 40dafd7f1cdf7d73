package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/aura-network/aura/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memInbox struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (m *memInbox) InsertNotification(_ context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, n)
	return nil
}

func (m *memInbox) PendingNotifications(_ context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if n.UserID == userID && !n.Shown {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memInbox) MarkNotificationShown(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Shown = true
			return true, nil
		}
	}
	return false, nil
}

func TestHub_NotifyStoresInInbox(t *testing.T) {
	inbox := &memInbox{}
	h := NewHub(inbox, nil)

	h.Notify("u1", "Streak Saved!", "Used 1 Streak Freeze.", domain.NotifySuccess)

	pending, err := h.Pending(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("Pending() = %d, want 1", len(pending))
	}
	n := pending[0]
	if n.ID == "" || n.Title != "Streak Saved!" || n.Kind != domain.NotifySuccess {
		t.Errorf("stored notification = %+v", n)
	}

	ok, _ := h.MarkShown(context.Background(), n.ID)
	if !ok {
		t.Error("MarkShown() = false")
	}
	if pending, _ := h.Pending(context.Background(), "u1"); len(pending) != 0 {
		t.Errorf("still pending after shown: %d", len(pending))
	}
}

func TestHub_BroadcastFiltersByUser(t *testing.T) {
	h := NewHub(nil, nil)

	mine, unsubMine := h.Subscribe("u1")
	defer unsubMine()
	all, unsubAll := h.Subscribe("")
	defer unsubAll()

	h.Notify("u2", "Points Earned", "+10", domain.NotifyInfo)
	h.Notify("u1", "Points Earned", "+20", domain.NotifyInfo)

	var got domain.Notification
	if err := json.Unmarshal(<-mine, &got); err != nil {
		t.Fatal(err)
	}
	if got.UserID != "u1" {
		t.Errorf("u1 client received %s's notification", got.UserID)
	}
	if len(all) != 2 {
		t.Errorf("all-users client buffered %d, want 2", len(all))
	}
}

func TestHub_SlowClientDrops(t *testing.T) {
	h := NewHub(nil, nil)
	ch, unsub := h.Subscribe("u1")
	defer unsub()

	for i := 0; i < 40; i++ {
		h.Notify("u1", "t", "m", domain.NotifyInfo)
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffer holds %d, want full %d", len(ch), cap(ch))
	}
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	h := NewHub(nil, nil)
	_, unsub := h.Subscribe("")
	unsub()
	unsub()
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", h.ClientCount())
	}
}

func TestHub_HandleSSE(t *testing.T) {
	h := NewHub(nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleSSE))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?user=u1", nil)
	tr := &http.Transport{}
	defer tr.CloseIdleConnections()
	resp, err := (&http.Client{Transport: tr}).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h.Notify("u1", "ACHIEVEMENT UNLOCKED", "Initiation (+50 Credits)", domain.NotifySuccess)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(line, "data: ") || !strings.Contains(line, "Initiation") {
		t.Errorf("event line = %q", line)
	}
	cancel()
}

func TestHub_HandleSSE_RequiresUser(t *testing.T) {
	h := NewHub(nil, nil)
	rec := httptest.NewRecorder()
	h.HandleSSE(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/live", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", h.ClientCount())
	}
}
