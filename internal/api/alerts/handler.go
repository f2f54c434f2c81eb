// Package alerts implements the alert endpoints of the REST API.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertwatch/internal/alert"
	"github.com/good-yellow-bee/alertwatch/internal/models"
)

// Response helpers (local to avoid import cycle)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	jsonStatus(w, http.StatusOK, data)
}

func jsonStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Handler handles alert endpoints.
type Handler struct {
	manager *alert.Manager
}

// NewHandler creates an alert handler over the lifecycle manager.
func NewHandler(manager *alert.Manager) *Handler {
	return &Handler{manager: manager}
}

// CreateRequest is the body of POST /create.
type CreateRequest struct {
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	Severity int             `json:"severity"`
	Source   string          `json:"source"`
	Metadata models.Metadata `json:"metadata"`
}

// TransitionRequest is the body of the acknowledge/resolve endpoints.
type TransitionRequest struct {
	User  string `json:"user"`
	Notes string `json:"notes"`
}

// List returns unresolved alerts, newest first.
//
// GET /alerts?limit=N
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := h.manager.GetOpenAlerts(r.Context(), limit)
	if err != nil {
		log.Printf("list alerts error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if list == nil {
		list = []*models.Alert{}
	}

	jsonOK(w, map[string]any{
		"alerts":    list,
		"count":     len(list),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetByID returns one alert with its audit trail.
//
// GET /alert/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, actions, err := h.manager.GetAlertDetails(r.Context(), id)
	if err != nil {
		log.Printf("get alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if found == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return
	}
	if actions == nil {
		actions = []*models.AlertAction{}
	}

	jsonOK(w, map[string]any{
		"alert":   found,
		"actions": actions,
	})
}

// Stats returns alert statistics for the requested period, clamped to
// 90 days.
//
// GET /stats?days=N
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	days := 0
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid days")
			return
		}
		days = n
	}

	stats, err := h.manager.GetAlertStats(r.Context(), days)
	if err != nil {
		log.Printf("alert stats error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, map[string]any{
		"stats":       stats,
		"period_days": stats.PeriodDays,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Create creates a new alert.
//
// POST /create
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Severity == 0 {
		req.Severity = 3
	}
	if req.Source == "" {
		req.Source = "api"
	}

	id, err := h.manager.CreateAlert(r.Context(), req.Title, req.Message, req.Severity, req.Source, req.Metadata)
	if err != nil {
		if errors.Is(err, alert.ErrValidation) {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		log.Printf("create alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonStatus(w, http.StatusCreated, map[string]any{
		"alert_id": id,
		"message":  "alert created",
	})
}

// Test creates a synthetic alert for end-to-end verification of the
// notification path.
//
// POST /test
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	id, err := h.manager.CreateAlert(r.Context(),
		"Test alert",
		"synthetic alert created at "+time.Now().UTC().Format(time.RFC3339),
		2, "test", models.Metadata{"synthetic": models.Bool(true)})
	if err != nil {
		log.Printf("test alert error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, map[string]any{
		"alert_id": id,
		"message":  "test alert created",
	})
}

// Escalate runs one escalation pass.
//
// POST /escalation
func (h *Handler) Escalate(w http.ResponseWriter, r *http.Request) {
	count, err := h.manager.ProcessEscalations(r.Context())
	if err != nil {
		log.Printf("escalation error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, map[string]any{
		"escalated_count": count,
	})
}

// Acknowledge acknowledges an open alert. A missing or already
// acknowledged alert is a 404.
//
// PUT /acknowledge/{id}
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.AcknowledgeAlert, "acknowledged")
}

// Resolve resolves an open or acknowledged alert.
//
// PUT /resolve/{id}
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.ResolveAlert, "resolved")
}

// Cleanup removes resolved alerts past the retention horizon.
//
// DELETE /cleanup?days=N
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	days := 0
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid days")
			return
		}
		days = n
	}

	result, err := h.manager.CleanupOldAlerts(r.Context(), days)
	if err != nil {
		log.Printf("cleanup error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, map[string]any{
		"deleted_alerts":  result.AlertsDeleted,
		"deleted_actions": result.ActionsDeleted,
	})
}

type transitionFunc func(ctx context.Context, id, user, notes string) (bool, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, verb string) {
	id := chi.URLParam(r, "id")

	var req TransitionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
			return
		}
	}
	if req.User == "" {
		req.User = "api"
	}

	ok, err := fn(r.Context(), id, req.User, req.Notes)
	if err != nil {
		log.Printf("%s alert error: %v", verb, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found or already "+verb)
		return
	}

	jsonOK(w, map[string]any{
		"alert_id": id,
		"message":  "alert " + verb,
	})
}
