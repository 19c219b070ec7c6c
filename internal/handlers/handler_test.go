// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides in-memory fakes and a routed test server shared
// by the handler tests.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"socialpilot/internal/models"
	"socialpilot/internal/scheduler"
)

// fakeItems is an in-memory ItemRepository with version checks.
type fakeItems struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*models.ContentItem
	listErr error
}

func newFakeItems(items ...models.ContentItem) *fakeItems {
	f := &fakeItems{items: make(map[uuid.UUID]*models.ContentItem)}
	for i := range items {
		it := items[i]
		f.items[it.ID] = &it
	}
	return f
}

func (f *fakeItems) ListByStatus(_ context.Context, status models.ItemStatus, limit, offset int) ([]models.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.ContentItem
	for _, it := range f.items {
		if status == "" || it.Status == status {
			out = append(out, *it)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeItems) FindByID(_ context.Context, id uuid.UUID) (*models.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeItems) CountByStatus(context.Context) (map[models.ItemStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.ItemStatus]int)
	for _, it := range f.items {
		counts[it.Status]++
	}
	return counts, nil
}

func (f *fakeItems) Update(_ context.Context, c *models.ContentItem, expected int64) (*models.ContentItem, error) {
	if err := c.CheckInvariants(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[c.ID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if stored.Version != expected || stored.Status.IsTerminal() {
		return nil, models.ErrConflict
	}
	cp := *c
	cp.Version = expected + 1
	f.items[c.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeItems) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeEdits records appended edits.
type fakeEdits struct {
	mu      sync.Mutex
	records []models.EditRecord
}

func (f *fakeEdits) Append(_ context.Context, r *models.EditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *r)
	return nil
}

func (f *fakeEdits) ListRecent(_ context.Context, limit int) ([]models.EditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > 0 && len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeEdits) ListForItem(_ context.Context, id uuid.UUID) ([]models.EditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EditRecord
	for _, r := range f.records {
		if r.ItemID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeHistory serves a fixed corpus and counts reads.
type fakeHistory struct {
	items []models.HistoricalItem
	reads int
}

func (f *fakeHistory) List(context.Context, int) ([]models.HistoricalItem, error) {
	f.reads++
	return f.items, nil
}

// fakeJobs records triggers and returns a canned outcome.
type fakeJobs struct {
	mu      sync.Mutex
	outcome scheduler.Outcome
	err     error
	calls   []string
	ctxs    []context.Context
	states  []scheduler.JobState
}

func (f *fakeJobs) Trigger(ctx context.Context, name string) (scheduler.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.ctxs = append(f.ctxs, ctx)
	out := f.outcome
	out.Job = name
	return out, f.err
}

func (f *fakeJobs) States() []scheduler.JobState { return f.states }

type fakeExpander struct {
	out string
	err error
}

func (f *fakeExpander) Name() string { return "claude" }
func (f *fakeExpander) ExpandToLongForm(context.Context, string) (string, error) {
	return f.out, f.err
}

type fakeSnapshots struct {
	data map[string][]byte
}

func (f *fakeSnapshots) Get(_ context.Context, key string) ([]byte, bool) {
	d, ok := f.data[key]
	return d, ok
}

func (f *fakeSnapshots) Set(_ context.Context, key string, data []byte) {
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	f.data[key] = data
}

var errBoom = errors.New("boom")

// testRoutes mounts the API the same way the router does.
func testRoutes(a *API) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", a.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/trigger/generate", a.TriggerGenerate)
		r.Get("/trigger/generate", a.TriggerGenerate)
		r.Post("/trigger/publish", a.TriggerPublish)
		r.Get("/trigger/publish", a.TriggerPublish)
		r.Get("/items", a.ListItems)
		r.Get("/items/counts", a.ItemCounts)
		r.Get("/items/{id}", a.GetItem)
		r.Patch("/items/{id}", a.UpdateItem)
		r.Delete("/items/{id}", a.DeleteItem)
		r.Post("/items/{id}/expand", a.ExpandItem)
		r.Get("/items/{id}/edits", a.ItemEdits)
		r.Get("/schedules", a.ListSchedules)
		r.Get("/corpus/analysis", a.CorpusAnalysis)
		r.Get("/jobs", a.ListJobs)
		r.Get("/config", a.RuntimeConfig)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func pendingItem(content string) models.ContentItem {
	return models.ContentItem{
		ID:        uuid.New(),
		Content:   content,
		Source:    "claude",
		Status:    models.StatusPending,
		Version:   1,
		CreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}
