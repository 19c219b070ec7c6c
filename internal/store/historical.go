// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialpilot/internal/models"
)

// HistoricalStore persists the corpus of previously published posts.
type HistoricalStore struct {
	db *sql.DB
}

// NewHistoricalStore creates a new HistoricalStore.
func NewHistoricalStore(db *sql.DB) *HistoricalStore {
	return &HistoricalStore{db: db}
}

// Upsert inserts h or, when its external id already exists, refreshes the
// engagement, topic tags and fetch time. It reports whether a new row was
// inserted.
func (s *HistoricalStore) Upsert(ctx context.Context, h *models.HistoricalItem) (bool, error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.FetchedAt.IsZero() {
		h.FetchedAt = time.Now().UTC()
	}
	engagement := h.Engagement
	if engagement == nil {
		engagement = models.Engagement{}
	}
	tags := h.TopicTags
	if tags == nil {
		tags = []string{}
	}
	engJSON, err := json.Marshal(engagement)
	if err != nil {
		return false, fmt.Errorf("marshal engagement: %w", err)
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("marshal topic tags: %w", err)
	}

	var inserted bool
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO historical_items (id, external_id, content, posted_at, engagement, topic_tags, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO UPDATE SET
			engagement = EXCLUDED.engagement,
			topic_tags = EXCLUDED.topic_tags,
			fetched_at = EXCLUDED.fetched_at
		RETURNING (xmax = 0)
	`, h.ID, h.ExternalID, h.Content, h.PostedAt, engJSON, tagJSON, h.FetchedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert historical item %s: %w", h.ExternalID, err)
	}
	return inserted, nil
}

// Count returns the number of historical items.
func (s *HistoricalStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM historical_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count historical items: %w", err)
	}
	return n, nil
}

// List returns historical items, most recently posted first. The order is
// total so analysis over the result is reproducible. limit <= 0 returns
// every item.
func (s *HistoricalStore) List(ctx context.Context, limit int) ([]models.HistoricalItem, error) {
	query := `
		SELECT id, external_id, content, posted_at, engagement, topic_tags, fetched_at
		FROM historical_items
		ORDER BY posted_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list historical items: %w", err)
	}
	defer rows.Close()

	var items []models.HistoricalItem
	for rows.Next() {
		var h models.HistoricalItem
		var engJSON, tagJSON []byte
		if err := rows.Scan(&h.ID, &h.ExternalID, &h.Content, &h.PostedAt, &engJSON, &tagJSON, &h.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan historical item: %w", err)
		}
		if err := json.Unmarshal(engJSON, &h.Engagement); err != nil {
			return nil, fmt.Errorf("decode engagement for %s: %w", h.ExternalID, err)
		}
		if err := json.Unmarshal(tagJSON, &h.TopicTags); err != nil {
			return nil, fmt.Errorf("decode topic tags for %s: %w", h.ExternalID, err)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
