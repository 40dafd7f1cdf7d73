// Package api provides the HTTP server for the Aura ledger daemon.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/app/leaderboard"
	"github.com/aura-network/aura/internal/app/ledger"
	"github.com/aura-network/aura/internal/app/productivity"
	"github.com/aura-network/aura/internal/app/shop"
	"github.com/aura-network/aura/internal/infra/notify"
)

// Services are the application services the API exposes. Notifications
// and Audit may be nil.
type Services struct {
	Ledgers       *ledger.Registry
	Productivity  *productivity.Service
	Shop          *shop.Service
	Leaderboard   *leaderboard.Service
	Achievements  achievement.Source
	Notifications *notify.Hub
	Audit         AuditReader
}

// Server is the Aura HTTP API server.
type Server struct {
	svc            Services
	version        string
	log            *zap.Logger
	metricsEnabled bool
	timeout        time.Duration
}

// NewServer creates a new API server.
func NewServer(svc Services, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, version: version, log: log.Named("api"), timeout: 30 * time.Second}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRequestTimeout overrides the per-request timeout.
func (s *Server) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// The live feed is long-lived and must not be cut by the request timeout.
	if s.svc.Notifications != nil {
		r.Get("/api/notifications/live", s.svc.Notifications.HandleSSE)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Route("/api/users/{user}", func(r chi.Router) {
			r.Get("/ledger", s.handleLedger)
			r.Delete("/", s.handleDeleteUser)
			r.Post("/points/earn", s.handleEarn)
			r.Post("/points/spend", s.handleSpend)
			r.Post("/activity", s.handleActivity)
			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleAddTask)
			r.Post("/tasks/{task}/toggle", s.handleToggleTask)
			r.Post("/tasks/{task}/complete", s.handleCompleteTask)
			r.Delete("/tasks/{task}", s.handleDeleteTask)
			r.Post("/sessions/complete", s.handleCompleteSession)
			r.Get("/sessions", s.handleSessionHistory)
			r.Delete("/sessions", s.handleClearSessions)
			r.Post("/items/{item}/grant", s.handleGrantItem)
			r.Post("/items/{item}/consume", s.handleConsumeItem)
			r.Post("/streak/restore", s.handleRestoreStreak)
			r.Get("/achievements", s.handleAchievements)
			r.Get("/audit", s.handleAudit)
			r.Post("/shop/{item}/buy", s.handleBuy)
			r.Get("/notifications", s.handleNotifications)
		})

		r.Get("/api/shop", s.handleShop)
		r.Get("/api/leaderboard", s.handleLeaderboard)
		r.Post("/api/notifications/{id}/shown", s.handleNotificationShown)
	})

	return r
}

// requestLogger logs one line per request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the browser client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
