// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// EditRecord is an append-only log entry of a human correction. It is read
// back only as a training signal for generation.
type EditRecord struct {
	ID              uuid.UUID `json:"id"`
	ItemID          uuid.UUID `json:"item_id"`
	Source          string    `json:"source"`
	OriginalContent string    `json:"original_content"`
	EditedContent   string    `json:"edited_content"`
	EditedAt        time.Time `json:"edited_at"`
}
