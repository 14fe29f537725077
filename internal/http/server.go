// Package http exposes the JSON API: CRUD over the agency entities plus
// the derived views (dashboard, effort summary, projection progress,
// invoice balances, global search).
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "agencydesk/internal/log"
	"agencydesk/internal/services"
	"agencydesk/internal/storage"
)

type Server struct {
	http.Server

	repo        *storage.SQLiteRepository
	payments    *services.Payments
	efforts     *services.Efforts
	projections *services.Projections
	dashboard   *services.Dashboard

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

func NewServer(
	addr string,
	repo *storage.SQLiteRepository,
	payments *services.Payments,
	efforts *services.Efforts,
	projections *services.Projections,
	dashboard *services.Dashboard,
	logger *applog.Logger,
) *Server {
	s := &Server{
		repo:        repo,
		payments:    payments,
		efforts:     efforts,
		projections: projections,
		dashboard:   dashboard,
		rateLimiter: newRateLimiter(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/readyz", s.handleReadyz)

	mux.HandleFunc("/api/dashboard", s.handleDashboard)

	mux.HandleFunc("/api/clients", s.handleClients)
	mux.HandleFunc("/api/clients/", s.handleClientByID)
	mux.HandleFunc("/api/employees", s.handleEmployees)

	mux.HandleFunc("/api/content", s.handleContent)
	mux.HandleFunc("/api/content/", s.handleContentStatus)
	mux.HandleFunc("/api/efforts", s.handleEfforts)

	mux.HandleFunc("/api/tasks", s.handleTasks)
	mux.HandleFunc("/api/tasks/", s.handleTaskStatus)

	mux.HandleFunc("/api/invoices", s.handleInvoices)
	mux.HandleFunc("/api/invoices/", s.handleInvoiceSub)

	mux.HandleFunc("/api/projections", s.handleProjections)
	mux.HandleFunc("/api/projections/progress", s.handleProjectionProgress)

	mux.HandleFunc("/api/search", s.handleSearch)

	var handler http.Handler = mux
	handler = s.rateLimitMiddleware(handler)
	handler = securityHeaders(handler)
	handler = applog.Middleware(logger)(handler)
	return handler
}

// Shutdown stops the HTTP server and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
