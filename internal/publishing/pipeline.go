// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publishing delivers due scheduled items to the platform and
// commits each outcome as soon as it is known.
package publishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"socialpilot/internal/metrics"
	"socialpilot/internal/models"
	"socialpilot/internal/platform"
)

// ItemStore is the slice of the item store the pipeline needs.
type ItemStore interface {
	ListDue(ctx context.Context, now time.Time) ([]models.ContentItem, error)
	Claim(ctx context.Context, id uuid.UUID, version int64) (int64, error)
	MarkPosted(ctx context.Context, id uuid.UUID, version int64, postedAt time.Time, externalID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, version int64, reason string) error
}

// Pipeline publishes due items through a single platform.
type Pipeline struct {
	items     ItemStore
	publisher platform.Publisher
	metrics   *metrics.Metrics
}

// New creates a publishing pipeline. m may be nil.
func New(items ItemStore, publisher platform.Publisher, m *metrics.Metrics) *Pipeline {
	return &Pipeline{items: items, publisher: publisher, metrics: m}
}

// Result summarises one publish cycle. Errors is keyed by item id.
type Result struct {
	Checked int               `json:"checked"`
	Posted  int               `json:"posted"`
	Failed  int               `json:"failed"`
	Skipped int               `json:"skipped"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// PublishDue delivers every scheduled item whose time is at or before now,
// oldest first. Each item is claimed before delivery; an item changed by a
// reviewer since it was read is skipped for this cycle. Exactly one attempt
// is made per claimed item.
func (p *Pipeline) PublishDue(ctx context.Context, now time.Time) (*Result, error) {
	due, err := p.items.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}

	res := &Result{Checked: len(due)}
	for i := range due {
		if err := ctx.Err(); err != nil {
			slog.Warn("publishing: cycle cancelled", "remaining", len(due)-i, "error", err)
			break
		}
		p.publishOne(ctx, &due[i], now, res)
	}

	if res.Checked > 0 {
		slog.Info("publishing: cycle complete",
			"platform", p.publisher.Name(),
			"checked", res.Checked,
			"posted", res.Posted,
			"failed", res.Failed,
			"skipped", res.Skipped,
		)
	}
	return res, nil
}

func (p *Pipeline) publishOne(ctx context.Context, item *models.ContentItem, now time.Time, res *Result) {
	id := item.ID.String()
	name := p.publisher.Name()

	version, err := p.items.Claim(ctx, item.ID, item.Version)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			slog.Info("publishing: item changed since read, skipping", "item", id)
			res.Skipped++
			p.metrics.Delivered(name, "skipped")
			return
		}
		p.recordError(res, id, fmt.Errorf("claim: %w", err))
		slog.Error("publishing: claim item", "item", id, "error", err)
		return
	}

	externalID, pubErr := p.publisher.Publish(ctx, item.Content)
	if pubErr != nil {
		slog.Error("publishing: delivery failed", "item", id, "platform", name, "error", pubErr)
		if err := p.items.MarkFailed(ctx, item.ID, version, pubErr.Error()); err != nil {
			slog.Error("publishing: record failure", "item", id, "error", err)
		}
		res.Failed++
		p.recordError(res, id, pubErr)
		p.metrics.Delivered(name, "failed")
		return
	}

	if err := p.items.MarkPosted(ctx, item.ID, version, now, externalID); err != nil {
		// Delivered but not recorded: the item stays scheduled and will be
		// offered again next cycle.
		slog.Error("publishing: record delivery", "item", id, "external_id", externalID, "error", err)
		p.recordError(res, id, fmt.Errorf("posted as %s but not recorded: %w", externalID, err))
	}
	res.Posted++
	p.metrics.Delivered(name, "posted")
	slog.Info("publishing: posted", "item", id, "platform", name, "external_id", externalID)
}

func (p *Pipeline) recordError(res *Result, id string, err error) {
	if res.Errors == nil {
		res.Errors = make(map[string]string)
	}
	res.Errors[id] = err.Error()
}
