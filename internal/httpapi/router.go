// Package httpapi serves the dashboard JSON API over an Engine.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/dashauth"
	"github.com/MrEthical07/dashauth/metrics/export/prometheus"
	"github.com/MrEthical07/dashauth/middleware"
	"github.com/MrEthical07/dashauth/permission"
	"github.com/go-chi/chi/v5"
)

// Handler binds the API routes to an engine.
type Handler struct {
	engine *dashauth.Engine
	logger *slog.Logger
}

// NewHandler returns a Handler. A nil logger discards.
func NewHandler(engine *dashauth.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{engine: engine, logger: logger}
}

// NewRouter registers the API routes and middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)
	r.Use(middleware.ClientInfo)

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", prometheus.NewPrometheusExporter(h.engine).Handler())

	reject := middleware.WithErrorWriter(h.fail)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/password/reset-request", h.resetRequest)
		r.Post("/auth/password/verify", h.resetVerify)
		r.Post("/auth/password/reset", h.resetConfirm)
		r.Get("/auth/password/strength", h.strength)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(h.engine, reject))

			r.Post("/auth/logout", h.logout)
			r.Get("/me", h.me)
			r.Patch("/me", h.updateMe)
			r.Post("/me/password", h.changePassword)
			r.Get("/me/sessions", h.mySessions)
			r.Delete("/me/sessions/{sessionID}", h.revokeMySession)
			r.Get("/stats", h.stats)

			r.Route("/users", func(r chi.Router) {
				r.With(middleware.RequirePermission(h.engine, permission.UsersList, reject)).Get("/", h.listUsers)
				r.Get("/{userID}", h.getUser)
				r.Patch("/{userID}", h.updateUser)
				r.Delete("/{userID}", h.deleteUser)
				r.Put("/{userID}/status", h.setStatus)
				r.Post("/{userID}/status/toggle", h.toggleStatus)
				r.Get("/{userID}/sessions", h.userSessions)
				r.Delete("/{userID}/sessions/{sessionID}", h.revokeUserSession)
			})
		})
	})

	return r
}
