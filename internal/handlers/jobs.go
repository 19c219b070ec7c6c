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

	"socialpilot/internal/generation"
	"socialpilot/internal/scheduler"
)

type generateRequest struct {
	Count int `json:"count"`
}

// TriggerGenerate runs the generation cycle through the orchestrator. The
// optional JSON body {"count": n} overrides the daily batch size for this
// run only.
func (a *API) TriggerGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Count < 0 || req.Count > maxBatchSize {
		writeError(w, http.StatusUnprocessableEntity, "count must be between 0 and 500")
		return
	}

	ctx := r.Context()
	if req.Count > 0 {
		ctx = generation.WithTarget(ctx, req.Count)
	}
	a.trigger(w, r.WithContext(ctx), scheduler.JobGeneration)
}

// TriggerPublish runs the publishing cycle through the orchestrator.
func (a *API) TriggerPublish(w http.ResponseWriter, r *http.Request) {
	a.trigger(w, r, scheduler.JobPublishing)
}

// trigger answers 200 for completed and skipped runs so cron callers do
// not retry a run that is already in progress. A failed run answers 500
// with the same outcome body.
func (a *API) trigger(w http.ResponseWriter, r *http.Request, job string) {
	out, err := a.Jobs.Trigger(r.Context(), job)
	if errors.Is(err, scheduler.ErrUnknownJob) {
		writeError(w, http.StatusServiceUnavailable, "job "+job+" is not registered")
		return
	}
	if err != nil {
		slog.Error("trigger failed", "job", job, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("trigger handled", "job", job, "skipped", out.Skipped, "reason", out.Reason, "duration", out.Duration.String())
	if out.Error != "" {
		writeJSON(w, http.StatusInternalServerError, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListJobs reports the guard state, counters and next run of every job.
func (a *API) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Jobs.States())
}
