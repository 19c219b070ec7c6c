// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialpilot/internal/models"
)

// EditStore is the append-only log of reviewer corrections.
type EditStore struct {
	db *sql.DB
}

// NewEditStore creates a new EditStore.
func NewEditStore(db *sql.DB) *EditStore {
	return &EditStore{db: db}
}

// Append records an edit. ID and EditedAt are filled in when unset.
func (s *EditStore) Append(ctx context.Context, r *models.EditRecord) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.EditedAt.IsZero() {
		r.EditedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO edit_records (id, item_id, source, original_content, edited_content, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ItemID, r.Source, r.OriginalContent, r.EditedContent, r.EditedAt)
	if err != nil {
		return fmt.Errorf("append edit record: %w", err)
	}
	return nil
}

// ListRecent returns the most recent edits, newest first.
func (s *EditStore) ListRecent(ctx context.Context, limit int) ([]models.EditRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, source, original_content, edited_content, edited_at
		FROM edit_records
		ORDER BY edited_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent edits: %w", err)
	}
	return scanEdits(rows)
}

// ListForItem returns every edit recorded for one item, newest first.
func (s *EditStore) ListForItem(ctx context.Context, itemID uuid.UUID) ([]models.EditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, source, original_content, edited_content, edited_at
		FROM edit_records
		WHERE item_id = $1
		ORDER BY edited_at DESC, id
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item edits: %w", err)
	}
	return scanEdits(rows)
}

func scanEdits(rows *sql.Rows) ([]models.EditRecord, error) {
	defer rows.Close()
	var out []models.EditRecord
	for rows.Next() {
		var r models.EditRecord
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Source, &r.OriginalContent, &r.EditedContent, &r.EditedAt); err != nil {
			return nil, fmt.Errorf("scan edit record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
