package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aura-network/aura/internal/app/leaderboard"
	"github.com/aura-network/aura/internal/domain"
)

// ─── Shop, Leaderboard & Notifications API ──────────────────────────────────
//
// GET  /api/shop?user={id}                   - catalog, annotated for a user
// POST /api/users/{user}/shop/{item}/buy     - purchase
// GET  /api/leaderboard?board=&q=&limit=     - monthly or all_time ranking
// GET  /api/users/{user}/notifications       - unshown notifications
// POST /api/notifications/{id}/shown         - mark shown
// GET  /api/notifications/live?user={id}     - SSE feed

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	offers, err := s.svc.Shop.Listing(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": offers})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	rcpt, err := s.svc.Shop.Buy(r.Context(), chi.URLParam(r, "user"), chi.URLParam(r, "item"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := leaderboard.ParseType(q.Get("board"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.svc.Leaderboard.Board(r.Context(), typ, q.Get("q"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"board":   typ,
		"entries": entries,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.svc.Notifications == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications not enabled")
		return
	}
	pending, err := s.svc.Notifications.Pending(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if pending == nil {
		pending = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": pending})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	if s.svc.Notifications == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications not enabled")
		return
	}
	found, err := s.svc.Notifications.MarkShown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
