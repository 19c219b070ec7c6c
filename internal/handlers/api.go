// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers of SocialPilot: the
// trigger endpoints, the review API and read-only status views. Handlers
// receive their dependencies through the API struct.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"socialpilot/internal/corpus"
	"socialpilot/internal/models"
	"socialpilot/internal/scheduler"
)

// ItemRepository is the part of the item store the review API uses.
type ItemRepository interface {
	ListByStatus(ctx context.Context, status models.ItemStatus, limit, offset int) ([]models.ContentItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error)
	CountByStatus(ctx context.Context) (map[models.ItemStatus]int, error)
	Update(ctx context.Context, c *models.ContentItem, expectedVersion int64) (*models.ContentItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EditLog records and lists reviewer corrections.
type EditLog interface {
	corpus.EditReader
	Append(ctx context.Context, r *models.EditRecord) error
	ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.EditRecord, error)
}

// Expander rewrites a post as long-form copy.
type Expander interface {
	Name() string
	ExpandToLongForm(ctx context.Context, text string) (string, error)
}

// Jobs runs and reports orchestrated jobs.
type Jobs interface {
	Trigger(ctx context.Context, name string) (scheduler.Outcome, error)
	States() []scheduler.JobState
}

// Snapshots caches serialized read models. Implementations treat errors
// as misses.
type Snapshots interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

// PublicConfig is the non-sensitive runtime configuration exposed at
// /api/config. It never carries keys or secrets.
type PublicConfig struct {
	Env                 string   `json:"env"`
	Platform            string   `json:"platform"`
	TimelineSource      string   `json:"timeline_source"`
	TimelineAccount     string   `json:"timeline_account"`
	GenerationProviders []string `json:"generation_providers"`
	ModerationEnabled   bool     `json:"moderation_enabled"`
	PostsPerDay         int      `json:"posts_per_day"`
	GenerationTime      string   `json:"generation_time"`
	PublishCron         string   `json:"publish_cron"`
	Timezone            string   `json:"timezone"`
	CorpusThreshold     int      `json:"corpus_threshold"`
	LeasesEnabled       bool     `json:"leases_enabled"`
}

// Deps groups the API dependencies. History, Analyzer, Expander and
// Snapshots may be nil; the endpoints that need them answer 503.
type Deps struct {
	Items     ItemRepository
	Edits     EditLog
	History   corpus.HistoryReader
	Analyzer  *corpus.Analyzer
	Expander  Expander
	Jobs      Jobs
	Snapshots Snapshots
	Schedules []models.PostingSchedule
	Config    PublicConfig
}

// API serves the JSON endpoints.
type API struct {
	Deps
}

// NewAPI creates the handler group.
func NewAPI(d Deps) *API {
	if d.Analyzer == nil {
		d.Analyzer = corpus.NewAnalyzer(corpus.Config{})
	}
	return &API{Deps: d}
}

// Health answers liveness probes.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps an error kind to its HTTP status. Transient errors
// are logged and hidden behind a generic message.
func writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch models.KindOf(err) {
	case models.KindNotFound:
		writeError(w, http.StatusNotFound, "item not found")
	case models.KindConflict:
		writeError(w, http.StatusConflict, "item was modified concurrently; reload and retry")
	case models.KindValidation:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error(op+" failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
