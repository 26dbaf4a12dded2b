package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pranay-lamse/crimedigest/internal/config"
	db "github.com/pranay-lamse/crimedigest/internal/core/database"
)

type ReportHandler struct {
	dbclient db.DbClient
	cfg      *config.Config
}

func NewReportHandler(dbclient db.DbClient, cfg *config.Config) *ReportHandler {
	return &ReportHandler{dbclient: dbclient, cfg: cfg}
}

// Health reports service status and whether the inference API is configured.
func (h *ReportHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":                "healthy",
		"gemini_api_configured": h.cfg.AIAPIKey != "",
		"model":                 h.cfg.GenModel,
	})
}

// LatestReportData returns the dashboard payload for the newest report.
func (h *ReportHandler) LatestReportData(w http.ResponseWriter, r *http.Request) {
	data, err := h.dbclient.LatestReportData(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.Error(w, "no reports found in database", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
