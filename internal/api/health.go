package api

import (
	"net/http"

	"github.com/ashureev/emotext/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthHandler reports service health.
type HealthHandler struct {
	repo              store.Repository
	predictionEnabled bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, predictionEnabled bool) *HealthHandler {
	return &HealthHandler{repo: repo, predictionEnabled: predictionEnabled}
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}

// Health reports database reachability and classifier availability.
// The service is degraded, not down, when only prediction is disabled.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbOK := true
	if err := h.repo.Ping(r.Context()); err != nil {
		status = "degraded"
		dbOK = false
	}
	if !h.predictionEnabled {
		status = "degraded"
	}

	code := http.StatusOK
	if !dbOK {
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, map[string]interface{}{
		"status":             status,
		"database":           dbOK,
		"prediction_enabled": h.predictionEnabled,
	})
}
