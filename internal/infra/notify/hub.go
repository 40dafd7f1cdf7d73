// Package notify delivers user-facing toasts: it records them in the inbox
// and broadcasts them to live Server-Sent Events clients.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/domain"
	"github.com/aura-network/aura/internal/infra/observability"
)

// Inbox persists notifications for clients that were not connected.
type Inbox interface {
	InsertNotification(ctx context.Context, n domain.Notification) error
	PendingNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationShown(ctx context.Context, id string) (bool, error)
}

// ─── Hub ────────────────────────────────────────────────────────────────────

// Hub implements domain.Notifier. Slow live clients drop messages; the
// inbox keeps them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	inbox   Inbox
	log     *zap.Logger
	now     func() time.Time
}

type client struct {
	userID string // "" receives every user's notifications
	ch     chan []byte
}

// NewHub creates a hub. inbox may be nil.
func NewHub(inbox Inbox, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		inbox:   inbox,
		log:     log.Named("notify"),
		now:     time.Now,
	}
}

// Notify records and broadcasts a notification. It never fails the caller.
func (h *Hub) Notify(userID, title, message string, kind domain.NotificationKind) {
	n := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		CreatedAt: h.now().UTC(),
	}
	observability.NotificationsSent.WithLabelValues(string(kind)).Inc()
	h.log.Info(title,
		zap.String("user", userID),
		zap.String("kind", string(kind)),
		zap.String("message", message))

	if h.inbox != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := h.inbox.InsertNotification(ctx, n); err != nil {
			h.log.Warn("store notification", zap.String("user", userID), zap.Error(err))
		}
		cancel()
	}
	h.broadcast(n)
}

func (h *Hub) broadcast(n domain.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.userID != "" && c.userID != n.UserID {
			continue
		}
		select {
		case c.ch <- data:
		default:
			observability.NotificationsDropped.Inc()
		}
	}
}

// Subscribe registers a live client for userID ("" for all users). It
// returns the event channel and an unsubscribe func.
func (h *Hub) Subscribe(userID string) (<-chan []byte, func()) {
	c := &client{userID: userID, ch: make(chan []byte, 32)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return c.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			close(c.ch)
		})
	}
}

// ClientCount returns the number of connected live clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Pending returns a user's unshown notifications from the inbox.
func (h *Hub) Pending(ctx context.Context, userID string) ([]domain.Notification, error) {
	if h.inbox == nil {
		return nil, nil
	}
	return h.inbox.PendingNotifications(ctx, userID)
}

// MarkShown flags a notification as presented. It reports whether it existed.
func (h *Hub) MarkShown(ctx context.Context, id string) (bool, error) {
	if h.inbox == nil {
		return false, nil
	}
	return h.inbox.MarkNotificationShown(ctx, id)
}

// ─── Live Feed ──────────────────────────────────────────────────────────────

// HandleSSE serves one user's live notifications as Server-Sent Events.
// GET /api/notifications/live?user={id}
func (h *Hub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user query parameter required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ch, unsub := h.Subscribe(userID)
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
