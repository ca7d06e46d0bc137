package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/mbda/trafficboard/internal/analytics"
	"github.com/mbda/trafficboard/internal/api"
	"github.com/mbda/trafficboard/internal/database"
)

// editableFields is the allow-list of columns a PATCH may touch. Keys not
// on this list are silently dropped; id and the bookkeeping timestamps are
// never writable.
var editableFields = []string{
	"date",
	"time",
	"type",
	"classification",
	"location",
	"municipality",
	"district",
	"barangay",
	"vehicles_involved",
	"vehicle_counts",
	"narratives",
	"sector",
	"status_update",
	"lanes_update",
	"lanes_affected",
	"team",
	"toc_patrol",
	"delta_1",
	"tl",
	"atl",
	"roadwork_update",
	"stranded_vehicle_report",
	"accident_report",
	"images",
	"response_time",
	"latitude",
	"longitude",
}

// RecordsHandler serves the records table endpoints
type RecordsHandler struct {
	service *analytics.Service
	db      *gorm.DB
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(service *analytics.Service, db *gorm.DB) *RecordsHandler {
	return &RecordsHandler{service: service, db: db}
}

// SetupRoutes sets up records routes
func (h *RecordsHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/records", h.handleList)
	mux.HandleFunc("PATCH /api/records/{id}", h.handlePatch)
}

// handleList handles GET /api/records
func (h *RecordsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := analytics.ParseFilter(r.URL.Query())
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := api.ParsePagination(r)

	page, err := h.service.ListRecords(r.Context(), filter, p.Page, p.PageSize)
	if err != nil {
		log.Printf("RecordsHandler: list failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list records")
		return
	}

	api.RespondJSON(w, http.StatusOK, page)
}

// handlePatch handles PATCH /api/records/{id}
func (h *RecordsHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		api.RespondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var body map[string]interface{}
	if err := api.DecodeJSON(r, &body); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := make(map[string]interface{})
	for _, field := range editableFields {
		if value, ok := body[field]; ok {
			updates[field] = value
		}
	}

	// date must be a real calendar date before anything is written
	if raw, ok := updates["date"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			api.RespondError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		parsed, err := parseRecordDate(s)
		if err != nil {
			api.RespondError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		updates["date"] = parsed
	}

	updated, err := database.UpdateIncidentFields(h.db, uint(id), updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Record not found")
			return
		}
		log.Printf("RecordsHandler: update of record %d failed: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update record")
		return
	}

	api.RespondJSON(w, http.StatusOK, updated)
}

// parseRecordDate parses an editable date value. Bare dates are pinned to
// midnight UTC so the stored date-only portion never shifts with the
// server's time zone.
func parseRecordDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
