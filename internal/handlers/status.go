package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"socialpilot/internal/models"
)

// CorpusAnalysisKey is the snapshot key of the cached corpus analysis.
const CorpusAnalysisKey = "corpus:analysis"

// ListSchedules returns the configured posting schedules.
func (a *API) ListSchedules(w http.ResponseWriter, r *http.Request) {
	out := a.Schedules
	if out == nil {
		out = []models.PostingSchedule{}
	}
	writeJSON(w, http.StatusOK, out)
}

// CorpusAnalysis returns the bundle the next generation cycle would see.
// The serialized bundle is cached when a snapshot cache is configured.
func (a *API) CorpusAnalysis(w http.ResponseWriter, r *http.Request) {
	if a.Snapshots != nil {
		if data, ok := a.Snapshots.Get(r.Context(), CorpusAnalysisKey); ok {
			writeRaw(w, "HIT", data)
			return
		}
	}
	if a.History == nil {
		writeError(w, http.StatusServiceUnavailable, "historical corpus not configured")
		return
	}

	bundle, err := a.Analyzer.Load(r.Context(), a.History, a.Edits)
	if err != nil {
		slog.Error("corpus analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		slog.Error("encode corpus analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if a.Snapshots != nil {
		a.Snapshots.Set(r.Context(), CorpusAnalysisKey, data)
	}
	writeRaw(w, "MISS", data)
}

// RuntimeConfig returns the non-sensitive runtime configuration.
func (a *API) RuntimeConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Config)
}

func writeRaw(w http.ResponseWriter, cacheStatus string, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
