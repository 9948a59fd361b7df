// handlers/ingest_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nycenv/aqingest/logger"
	"github.com/nycenv/aqingest/services"
)

// Handler carries the services the API needs; nothing here reads globals.
type Handler struct {
	ingestion *services.IngestionService
	refresh   *services.RefreshService
}

func New(ingestion *services.IngestionService, refresh *services.RefreshService) *Handler {
	return &Handler{ingestion: ingestion, refresh: refresh}
}

// Register wires the API routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/admin/ingest", h.TriggerIngest)
	mux.HandleFunc("/api/runs", h.ListRuns)
	mux.HandleFunc("/api/runs/", h.RunSubresource)
}

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("Error marshalling JSON response: %v", err)
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	logger.Log.Errorf("API error %d: %s", code, message)
	respondWithJSON(w, code, map[string]string{"error": message})
}

// TriggerIngest handles POST /api/admin/ingest. With ?force=true it skips the
// freshness check and re-ingests unconditionally.
func (h *Handler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}
	force := strings.EqualFold(r.URL.Query().Get("force"), "true")

	summary, err := h.refresh.CheckAndIngest(force)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Ingestion failed: %v", err))
		return
	}
	if summary == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": "Dataset is not newer than the last successful run; nothing ingested.",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// ListRuns handles GET /api/runs?limit=N, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.ingestion.Runs().ListRuns(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, runs)
}

// RunSubresource handles GET /api/runs/{id} and GET /api/runs/{id}/rejects.
func (h *Handler) RunSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, http.StatusMethodNotAllowed, "Only GET method is allowed")
		return
	}

	// Expected path: api/runs/{id} or api/runs/{id}/rejects
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 {
		respondWithError(w, http.StatusBadRequest, "Invalid path. Expected /api/runs/{id}")
		return
	}

	runID, err := strconv.ParseInt(pathParts[2], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid run id %q", pathParts[2]))
		return
	}

	if len(pathParts) >= 4 {
		if pathParts[3] != "rejects" {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown run subresource %q", pathParts[3]))
			return
		}
		h.listRejects(w, r, runID)
		return
	}

	run, err := h.ingestion.Runs().GetRun(runID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get run %d: %v", runID, err))
		return
	}
	if run == nil {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Run %d not found", runID))
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}

func (h *Handler) listRejects(w http.ResponseWriter, r *http.Request, runID int64) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rejects, err := h.ingestion.Runs().ListRejects(runID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list rejects for run %d: %v", runID, err))
		return
	}
	respondWithJSON(w, http.StatusOK, rejects)
}
