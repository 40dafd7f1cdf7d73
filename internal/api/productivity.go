package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aura-network/aura/internal/domain"
)

// ─── Productivity API ───────────────────────────────────────────────────────
//
// GET    /api/users/{user}/tasks?filter=all|active|completed - task list, newest first
// POST   /api/users/{user}/tasks                 - {text, due_date, due_time}
// POST   /api/users/{user}/tasks/{task}/toggle   - open <-> completed
// POST   /api/users/{user}/tasks/{task}/complete - complete and pay the reward
// DELETE /api/users/{user}/tasks/{task}          - remove from the list
// POST   /api/users/{user}/sessions/complete     - {minutes, label}
// GET    /api/users/{user}/sessions              - focus history, newest first
// DELETE /api/users/{user}/sessions              - purge focus history

type sessionRequest struct {
	Minutes float64 `json:"minutes"`
	Label   string  `json:"label"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := domain.ParseTaskFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tasks, err := s.svc.Productivity.Tasks(r.Context(), chi.URLParam(r, "user"), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req domain.NewTask
	if !decodeBody(w, r, &req) {
		return
	}
	task, err := s.svc.Productivity.AddTask(r.Context(), chi.URLParam(r, "user"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	upd, err := s.svc.Productivity.ToggleTask(r.Context(), chi.URLParam(r, "user"), chi.URLParam(r, "task"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upd)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	upd, err := s.svc.Productivity.CompleteTask(r.Context(), chi.URLParam(r, "user"), chi.URLParam(r, "task"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upd)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Productivity.DeleteTask(r.Context(), chi.URLParam(r, "user"), chi.URLParam(r, "task")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.Productivity.CompleteFocusSession(r.Context(), chi.URLParam(r, "user"), req.Minutes, req.Label)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Productivity.History(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h})
}

func (s *Server) handleClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Productivity.ClearHistory(r.Context(), chi.URLParam(r, "user")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
