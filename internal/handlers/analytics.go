package handlers

import (
	"log"
	"net/http"

	"github.com/mbda/trafficboard/internal/analytics"
	"github.com/mbda/trafficboard/internal/api"
)

// AnalyticsHandler serves the dashboard aggregation endpoint
type AnalyticsHandler struct {
	service *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// SetupRoutes sets up analytics routes
func (h *AnalyticsHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/analytics", h.handleAnalytics)
}

// handleAnalytics handles GET /api/analytics
func (h *AnalyticsHandler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	filter, err := analytics.ParseFilter(r.URL.Query())
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	overview, err := h.service.Overview(r.Context(), filter)
	if err != nil {
		// No partial response: one failed aggregate fails the request
		log.Printf("AnalyticsHandler: aggregation failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}

	api.RespondJSON(w, http.StatusOK, overview)
}
