// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"socialpilot/internal/markdown"
	"socialpilot/internal/models"
)

// ListItems returns items filtered by ?status= with limit/offset paging.
func (a *API) ListItems(w http.ResponseWriter, r *http.Request) {
	q, msg := parseListQuery(r.URL.Query())
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	items, err := a.Items.ListByStatus(r.Context(), q.status, q.limit, q.offset)
	if err != nil {
		writeStoreError(w, r, "list items", err)
		return
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  q.limit,
		"offset": q.offset,
	})
}

// ItemCounts returns the number of items per status.
func (a *API) ItemCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := a.Items.CountByStatus(r.Context())
	if err != nil {
		writeStoreError(w, r, "count items", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// GetItem returns one item.
func (a *API) GetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := a.loadItem(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// UpdateItem applies a reviewer change: a body edit, a status transition,
// a (re)schedule, or a combination. The optional version guards against
// overwriting a concurrent change. A body change is appended to the edit
// log.
func (a *API) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch itemPatch
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := patch.validate(); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	item, ok := a.loadItem(w, r)
	if !ok {
		return
	}
	expected := item.Version
	if patch.Version != nil {
		if *patch.Version != item.Version {
			writeStoreError(w, r, "update item", models.ErrConflict)
			return
		}
		expected = *patch.Version
	}

	before := item.Content
	changed := false
	if patch.Content != nil {
		var err error
		if changed, err = item.Edit(*patch.Content); err != nil {
			writeStoreError(w, r, "edit item", err)
			return
		}
	}
	if err := applyStatus(item, patch); err != nil {
		writeStoreError(w, r, "transition item", err)
		return
	}

	updated, err := a.Items.Update(r.Context(), item, expected)
	if err != nil {
		writeStoreError(w, r, "update item", err)
		return
	}

	if changed {
		rec := &models.EditRecord{
			ItemID:          updated.ID,
			Source:          updated.Source,
			OriginalContent: before,
			EditedContent:   updated.Content,
			EditedAt:        time.Now().UTC(),
		}
		if err := a.Edits.Append(r.Context(), rec); err != nil {
			slog.Error("append edit record failed", "item_id", updated.ID, "error", err)
		}
	}

	slog.Info("item updated", "item_id", updated.ID, "status", updated.Status, "edited", changed, "version", updated.Version)
	writeJSON(w, http.StatusOK, updated)
}

// applyStatus performs the transition named by the patch. A scheduled_time
// without a status schedules (or reschedules) the item.
func applyStatus(item *models.ContentItem, p itemPatch) error {
	switch {
	case p.Status != nil:
		return item.TransitionTo(models.ItemStatus(*p.Status), p.ScheduledTime)
	case p.ScheduledTime != nil:
		return item.TransitionTo(models.StatusScheduled, p.ScheduledTime)
	}
	return nil
}

// DeleteItem removes an item.
func (a *API) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	if err := a.Items.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, "delete item", err)
		return
	}
	slog.Info("item deleted", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ExpandItem asks the content provider for a long-form version of the
// item's body, returned as caption-ready text and as an HTML preview. The
// item itself is not modified.
func (a *API) ExpandItem(w http.ResponseWriter, r *http.Request) {
	if a.Expander == nil {
		writeError(w, http.StatusServiceUnavailable, "no content provider configured")
		return
	}
	item, ok := a.loadItem(w, r)
	if !ok {
		return
	}
	raw, err := a.Expander.ExpandToLongForm(r.Context(), item.Content)
	if err != nil {
		slog.Error("expand item failed", "item_id", item.ID, "provider", a.Expander.Name(), "error", err)
		writeError(w, http.StatusBadGateway, "content provider request failed")
		return
	}
	preview, err := markdown.ToHTML(raw)
	if err != nil {
		slog.Warn("render long form preview", "item_id", item.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":             item.ID,
		"content":        item.Content,
		"long_form":      markdown.ToPlainText(raw),
		"long_form_html": preview,
		"provider":       a.Expander.Name(),
	})
}

// ItemEdits lists the edit log of one item, newest first.
func (a *API) ItemEdits(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	edits, err := a.Edits.ListForItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, "list edits", err)
		return
	}
	if edits == nil {
		edits = []models.EditRecord{}
	}
	writeJSON(w, http.StatusOK, edits)
}

// loadItem resolves {id}, writing the error response itself on failure.
func (a *API) loadItem(w http.ResponseWriter, r *http.Request) (*models.ContentItem, bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}
	item, err := a.Items.FindByID(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) || (err == nil && item == nil) {
		writeError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	if err != nil {
		writeStoreError(w, r, "find item", err)
		return nil, false
	}
	return item, true
}
