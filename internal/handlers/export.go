package handlers

import (
	"encoding/csv"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/mbda/trafficboard/internal/analytics"
	"github.com/mbda/trafficboard/internal/api"
	"github.com/mbda/trafficboard/internal/database"
)

// exportColumns is the fixed CSV header. The order is part of the export
// contract (Excel sheets downstream reference columns by position).
var exportColumns = []string{
	"id", "date", "time", "type", "classification", "location",
	"municipality", "district", "barangay", "vehicles_involved",
	"vehicle_counts", "narratives", "sector", "status_update",
	"lanes_update", "lanes_affected", "team", "toc_patrol", "delta_1",
	"tl", "atl", "roadwork_update", "stranded_vehicle_report",
	"accident_report", "created_at", "updated_at", "images",
	"response_time", "latitude", "longitude",
}

// ExportHandler streams filtered records as CSV
type ExportHandler struct {
	service *analytics.Service
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *analytics.Service) *ExportHandler {
	return &ExportHandler{service: service}
}

// SetupRoutes sets up export routes
func (h *ExportHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/records/export", h.handleExport)
}

// handleExport handles GET /api/records/export
func (h *ExportHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := analytics.ParseFilter(r.URL.Query())
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.service.ExportRecords(r.Context(), filter)
	if err != nil {
		log.Printf("ExportHandler: export query failed: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to export records")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="traffic_incidents_export.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		log.Printf("ExportHandler: failed to write CSV header: %v", err)
		return
	}
	for _, row := range rows {
		if err := cw.Write(csvRecord(&row)); err != nil {
			log.Printf("ExportHandler: failed to write CSV row: %v", err)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("ExportHandler: CSV flush failed: %v", err)
	}
}

// csvRecord renders one incident in exportColumns order.
func csvRecord(i *database.Incident) []string {
	return []string{
		strconv.FormatUint(uint64(i.ID), 10),
		csvTime(i.Date),
		i.Time,
		i.Type,
		i.Classification,
		i.Location,
		i.Municipality,
		i.District,
		i.Barangay,
		i.VehiclesInvolved,
		i.VehicleCounts,
		i.Narratives,
		i.Sector,
		i.StatusUpdate,
		i.LanesUpdate,
		i.LanesAffected,
		i.Team,
		i.TOCPatrol,
		i.Delta1,
		i.TL,
		i.ATL,
		i.RoadworkUpdate,
		i.StrandedVehicleReport,
		i.AccidentReport,
		i.CreatedAt.UTC().Format(time.RFC3339),
		i.UpdatedAt.UTC().Format(time.RFC3339),
		i.Images,
		i.ResponseTime,
		csvFloat(i.Latitude),
		csvFloat(i.Longitude),
	}
}

// csvTime renders an optional timestamp round-trippably, or empty.
func csvTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// csvFloat renders an optional coordinate, or empty.
func csvFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
