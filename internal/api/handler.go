// Package api provides HTTP handlers for the emotion classifier API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/emotext/internal/classifier"
	"github.com/ashureev/emotext/internal/credentials"
	"github.com/ashureev/emotext/internal/domain"
	"github.com/ashureev/emotext/internal/router"
	"github.com/ashureev/emotext/internal/store"
	"github.com/go-chi/chi/v5"
)

// Handler routes user intents to the session state machine.
type Handler struct {
	rtr      *router.Router
	creds    *credentials.Store
	repo     store.Repository
	sessions *SessionManager
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(rtr *router.Router, creds *credentials.Store, repo store.Repository, sessions *SessionManager) *Handler {
	return &Handler{rtr: rtr, creds: creds, repo: repo, sessions: sessions}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers the view and intent routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Get("/config", h.GetConfig)
		r.Get("/about", h.GetAbout)
		r.Get("/monitor", h.GetMonitor)
		r.Get("/users", h.GetUsers)
		r.Post("/navigate", h.Navigate)
		r.Post("/login", h.Login)
		r.Post("/admin/login", h.AdminLogin)
		r.Post("/register", h.Register)
		r.Post("/predict", h.Predict)
		r.Post("/logout", h.Logout)
	})
}

// session loads the current routing snapshot for the request.
func (h *Handler) session(r *http.Request) (string, domain.Session) {
	id := SessionIDFromContext(r.Context())
	return id, h.sessions.Get(id)
}

// stateResponse is the envelope every intent returns: the resulting
// session snapshot plus whether the Home prediction form is unlocked
// and functional for it.
func (h *Handler) stateResponse(s domain.Session) map[string]interface{} {
	return map[string]interface{}{
		"session":            s,
		"prediction_enabled": h.rtr.PredictionEnabled() && s.Role == domain.RoleUser,
	}
}

// GetState returns the current session state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	_, s := h.session(r)
	JSON(w, http.StatusOK, h.stateResponse(s))
}

// GetConfig returns server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"prediction_enabled": h.rtr.PredictionEnabled(),
	})
}

// GetAbout returns the static About copy. The visit itself is recorded
// when the session navigates to the view.
func (h *Handler) GetAbout(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"title": "Emotion Detection in Text",
		"body": "This application analyzes free text and identifies the emotions " +
			"expressed in it, along with a confidence score for each prediction.",
	})
}

// Navigate moves the session to a requested view. Unreachable views
// re-render the current state.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View domain.View `json:"view"`
	}
	if !decode(w, r, &req) {
		return
	}

	id, s := h.session(r)
	next, err := h.rtr.Navigate(r.Context(), s, req.View)
	if err != nil {
		h.intentError(w, err)
		return
	}
	h.sessions.Put(id, next)
	JSON(w, http.StatusOK, h.stateResponse(next))
}

// Login submits user credentials.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	id, s := h.session(r)
	next, err := h.rtr.Login(r.Context(), s, req.Username, req.Password)
	h.sessions.Put(id, next)
	if err != nil {
		h.intentError(w, err)
		return
	}
	JSON(w, http.StatusOK, h.stateResponse(next))
}

// AdminLogin submits the fixed admin credential pair.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	id, s := h.session(r)
	next, err := h.rtr.AdminLogin(r.Context(), s, req.Username, req.Password)
	h.sessions.Put(id, next)
	if err != nil {
		h.intentError(w, err)
		return
	}
	JSON(w, http.StatusOK, h.stateResponse(next))
}

// Register submits the registration form.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var form credentials.RegistrationForm
	if !decode(w, r, &form) {
		return
	}

	id, s := h.session(r)
	next, err := h.rtr.Register(r.Context(), s, form)
	h.sessions.Put(id, next)
	if err != nil {
		h.intentError(w, err)
		return
	}
	JSON(w, http.StatusOK, h.stateResponse(next))
}

// Predict submits raw text from the Home view.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}

	id, s := h.session(r)
	next, result, err := h.rtr.Predict(r.Context(), s, req.Text)
	if err != nil {
		h.intentError(w, err)
		return
	}
	h.sessions.Put(id, next)

	resp := h.stateResponse(next)
	resp["prediction"] = result
	JSON(w, http.StatusOK, resp)
}

// Logout resets the session to its initial state.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, s := h.session(r)
	next, err := h.rtr.Logout(r.Context(), s)
	if err != nil {
		h.intentError(w, err)
		return
	}
	h.sessions.Put(id, next)
	JSON(w, http.StatusOK, h.stateResponse(next))
}

// GetMonitor returns the analytics payload: the visit log, per-page
// counts, and the prediction log.
func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	_, s := h.session(r)
	if !router.Reachable(s.Role, domain.ViewMonitor) {
		Error(w, http.StatusForbidden, "monitor not available for this role")
		return
	}

	ctx := r.Context()
	visits, err := h.repo.ListPageVisits(ctx)
	if err != nil {
		slog.Error("failed to read visit log", "error", err)
		Error(w, http.StatusInternalServerError, "failed to read telemetry")
		return
	}
	counts, err := h.repo.CountVisitsByPage(ctx)
	if err != nil {
		slog.Error("failed to aggregate visit log", "error", err)
		Error(w, http.StatusInternalServerError, "failed to read telemetry")
		return
	}
	predictions, err := h.repo.ListPredictions(ctx)
	if err != nil {
		slog.Error("failed to read prediction log", "error", err)
		Error(w, http.StatusInternalServerError, "failed to read telemetry")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"visits":       visits,
		"visit_counts": counts,
		"predictions":  predictions,
	})
}

// GetUsers returns all registered accounts. Admin only; hashes are not
// redacted, matching the original user-data view.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	_, s := h.session(r)
	if s.Role != domain.RoleAdmin {
		Error(w, http.StatusForbidden, "admin role required")
		return
	}

	accounts, err := h.creds.ListAll(r.Context())
	if err != nil {
		slog.Error("failed to list accounts", "error", err)
		Error(w, http.StatusInternalServerError, "failed to read accounts")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"users": accounts})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// intentError maps state-machine errors to HTTP responses. Validation
// and auth failures surface their message; anything else is logged and
// hidden behind a generic error.
func (h *Handler) intentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credentials.ErrInvalidEmail),
		errors.Is(err, credentials.ErrInvalidName),
		errors.Is(err, credentials.ErrInvalidPasswordLength),
		errors.Is(err, credentials.ErrPasswordMismatch),
		errors.Is(err, credentials.ErrInvalidAge),
		errors.Is(err, credentials.ErrInvalidGender):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, credentials.ErrUsernameTaken):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, credentials.ErrInvalidCredentials),
		errors.Is(err, router.ErrInvalidAdminCredentials),
		errors.Is(err, router.ErrLoginRequired):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, classifier.ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, "prediction is currently unavailable")
	default:
		slog.Error("intent failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
