// Package history implements the metrics history endpoints of the REST
// API.
package history

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/good-yellow-bee/alertwatch/internal/history"
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

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Handler handles performance and availability endpoints.
type Handler struct {
	aggregator *history.Aggregator
}

// NewHandler creates a history handler over the aggregator.
func NewHandler(aggregator *history.Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// Performance returns per-metric summaries over the requested window.
//
// GET /history/performance?hours=N
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request) {
	hours := 0
	if s := r.URL.Query().Get("hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid hours")
			return
		}
		hours = n
	}

	summaries, err := h.aggregator.GetPerformanceSummary(r.Context(), hours)
	if err != nil {
		log.Printf("performance summary error: %v", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	if summaries == nil {
		summaries = []*models.MetricSummary{}
	}

	jsonOK(w, map[string]any{
		"metrics":   summaries,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Availability returns per-service uptime over the last 24 hours.
//
// GET /history/availability
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	services, err := h.aggregator.GetAvailabilityMetrics(r.Context())
	if err != nil {
		log.Printf("availability metrics error: %v", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	if services == nil {
		services = []*models.ServiceAvailability{}
	}

	jsonOK(w, map[string]any{
		"services":  services,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
