// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store holds the PostgreSQL-backed stores for content items,
// the historical corpus and the edit log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"socialpilot/internal/models"
)

const itemColumns = `id, content, source, status, scheduled_time, posted_time,
	external_id, edited, original_content, last_error, version,
	created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ItemStore handles all content item database operations.
type ItemStore struct {
	db *sql.DB
}

// NewItemStore creates a new ItemStore with the given database connection.
func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(r rowScanner) (*models.ContentItem, error) {
	c := &models.ContentItem{}
	err := r.Scan(
		&c.ID, &c.Content, &c.Source, &c.Status, &c.ScheduledTime, &c.PostedTime,
		&c.ExternalID, &c.Edited, &c.OriginalContent, &c.LastError, &c.Version,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanItems(rows *sql.Rows) ([]models.ContentItem, error) {
	defer rows.Close()
	var items []models.ContentItem
	for rows.Next() {
		c, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Create inserts a new item. A nil ID is replaced with a fresh UUID and an
// empty status defaults to pending.
func (s *ItemStore) Create(ctx context.Context, c *models.ContentItem) (*models.ContentItem, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = models.StatusPending
	}
	if err := c.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO content_items (id, content, source, status, scheduled_time, edited, original_content)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+itemColumns,
		c.ID, c.Content, c.Source, c.Status, c.ScheduledTime, c.Edited, c.OriginalContent,
	)
	created, err := scanItem(row)
	if err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}
	return created, nil
}

// FindByID retrieves an item by its UUID.
func (s *ItemStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM content_items WHERE id = $1`, id)
	c, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content item %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find content item: %w", err)
	}
	return c, nil
}

// ListByStatus returns items with the given status, newest first. An empty
// status lists every item.
func (s *ItemStore) ListByStatus(ctx context.Context, status models.ItemStatus, limit, offset int) ([]models.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM content_items
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	return scanItems(rows)
}

// ListDue returns scheduled items whose scheduled time is at or before now,
// oldest-scheduled first.
func (s *ItemStore) ListDue(ctx context.Context, now time.Time) ([]models.ContentItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM content_items
		WHERE status = 'scheduled' AND scheduled_time <= $1
		ORDER BY scheduled_time ASC, created_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list due content items: %w", err)
	}
	return scanItems(rows)
}

// DeletePending removes every pending item and returns how many were deleted.
func (s *ItemStore) DeletePending(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("delete pending content items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete pending content items: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of items per status. Statuses with no
// items are absent from the map.
func (s *ItemStore) CountByStatus(ctx context.Context) (map[models.ItemStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM content_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count content items: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ItemStatus]int)
	for rows.Next() {
		var status models.ItemStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Update persists a reviewer mutation (body, status, schedule) if the stored
// version still equals expectedVersion. It returns the stored item with its
// bumped version.
func (s *ItemStore) Update(ctx context.Context, c *models.ContentItem, expectedVersion int64) (*models.ContentItem, error) {
	if err := c.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("update content item: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE content_items SET
			content = $1, status = $2, scheduled_time = $3, edited = $4,
			original_content = $5, version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7 AND status IN ('pending', 'approved', 'scheduled')
		RETURNING `+itemColumns,
		c.Content, c.Status, c.ScheduledTime, c.Edited, c.OriginalContent, c.ID, expectedVersion,
	)
	updated, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missOrConflict(ctx, c.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("update content item: %w", err)
	}
	return updated, nil
}

// Claim bumps the version of a scheduled item iff it still has the given
// version. The publishing pipeline claims an item before delivering it so a
// concurrent reviewer edit is detected. It returns the new version.
func (s *ItemStore) Claim(ctx context.Context, id uuid.UUID, version int64) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE content_items SET version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND status = 'scheduled'
		RETURNING version
	`, id, version).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("claim content item %s: %w", id, models.ErrConflict)
	}
	if err != nil {
		return 0, fmt.Errorf("claim content item: %w", err)
	}
	return next, nil
}

// MarkPosted records a successful delivery for a claimed item.
func (s *ItemStore) MarkPosted(ctx context.Context, id uuid.UUID, version int64, postedAt time.Time, externalID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE content_items SET
			status = 'posted', posted_time = $1, external_id = $2, last_error = NULL,
			version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4 AND status = 'scheduled'
	`, postedAt, externalID, id, version)
	if err != nil {
		return fmt.Errorf("mark content item posted: %w", err)
	}
	return expectOneRow(res, id)
}

// MarkFailed records a failed delivery. Failed items are never retried.
func (s *ItemStore) MarkFailed(ctx context.Context, id uuid.UUID, version int64, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE content_items SET
			status = 'failed', last_error = $1,
			version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND status = 'scheduled'
	`, reason, id, version)
	if err != nil {
		return fmt.Errorf("mark content item failed: %w", err)
	}
	return expectOneRow(res, id)
}

// Delete removes an item by ID.
func (s *ItemStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("content item %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func (s *ItemStore) missOrConflict(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM content_items WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check content item: %w", err)
	}
	if !exists {
		return fmt.Errorf("content item %s: %w", id, models.ErrNotFound)
	}
	return fmt.Errorf("content item %s: %w", id, models.ErrConflict)
}

func expectOneRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("content item %s: %w", id, models.ErrConflict)
	}
	return nil
}
