package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/vme-thermal/internal/auth"
)

// healthCheckTimeout bounds each dependency check in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Get("/{address}", s.handleGetSensor)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleOperator))
				r.Post("/", s.handleAddSensor)
				r.Delete("/{address}", s.handleRemoveSensor)
				r.Put("/{address}/calibration", s.handleSetCalibration)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Get("/latest", s.handleLatestReport)
			r.Get("/{id}", s.handleGetReport)
			r.With(s.requireRole(auth.RoleOperator)).Post("/", s.handleTriggerReport)
		})

		// Token checked in the handler; browsers cannot set headers on upgrade.
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports crate identity, cycle counters and the state of each
// optional dependency. It answers 503 if any dependency check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cycles, failures := s.monitor.Stats()

	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, check := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":    state,
		"version":   s.version,
		"crate":     s.crate.ID,
		"sensors":   len(s.monitor.Sensors()),
		"cycles":    cycles,
		"failures":  failures,
		"ws_client": s.hub.ClientCount(),
		"checks":    checks,
	})
}
