package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/app/ledger"
	"github.com/aura-network/aura/internal/domain"
)

// AuditReader lists a user's audit trail, newest first.
type AuditReader interface {
	ListAudit(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error)
}

// ─── Ledger API ─────────────────────────────────────────────────────────────
//
// GET    /api/users/{user}/ledger               - ledger view (lazy resets applied)
// DELETE /api/users/{user}                      - delete ledger and account data
// POST   /api/users/{user}/points/earn          - {amount, reason}
// POST   /api/users/{user}/points/spend         - {amount, reason}
// POST   /api/users/{user}/activity             - record today's activity
// POST   /api/users/{user}/items/{item}/grant   - add one unit
// POST   /api/users/{user}/items/{item}/consume - remove one unit
// POST   /api/users/{user}/streak/restore       - back-date to yesterday
// GET    /api/users/{user}/achievements         - catalog with unlock status
// GET    /api/users/{user}/audit?limit=N        - point movements

type pointsRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// engine resolves the {user} path parameter to a ledger engine, writing
// the error response itself on failure.
func (s *Server) engine(w http.ResponseWriter, r *http.Request) (*ledger.Engine, bool) {
	e, err := s.svc.Ledgers.Get(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return e, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledgers.Delete(r.Context(), chi.URLParam(r, "user")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEarn(w http.ResponseWriter, r *http.Request) {
	var req pointsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	if err := e.EarnPoints(r.Context(), req.Amount, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	var req pointsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	if err := e.SpendPoints(r.Context(), req.Amount, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	change := e.RecordDailyActivity(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"streak": change,
		"ledger": e.View(),
	})
}

func (s *Server) handleGrantItem(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	if err := e.GrantItem(r.Context(), chi.URLParam(r, "item")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleConsumeItem(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	if err := e.ConsumeItem(r.Context(), chi.URLParam(r, "item")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleRestoreStreak(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	if err := e.RestoreStreak(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	e, ok := s.engine(w, r)
	if !ok {
		return
	}
	var defs []domain.AchievementDefinition
	if s.svc.Achievements != nil {
		defs = s.svc.Achievements.Definitions()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": achievement.Statuses(e.Snapshot(), e.State().UnlockedAchievements, defs),
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.svc.Audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit trail not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.svc.Audit.ListAudit(r.Context(), chi.URLParam(r, "user"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
