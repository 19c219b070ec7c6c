package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"socialpilot/internal/models"
)

// Request limits for the review and trigger endpoints.
const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxBatchSize    = 500
	maxBodyBytes    = 64 << 10
)

// itemPatch is the body of PATCH /api/items/{id}. Absent fields are left
// unchanged.
type itemPatch struct {
	Content       *string    `json:"content"`
	Status        *string    `json:"status"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	Version       *int64     `json:"version"`
}

// validate checks the patch shape before it is applied to an item.
func (p itemPatch) validate() string {
	if p.Content == nil && p.Status == nil && p.ScheduledTime == nil {
		return "nothing to update"
	}
	if p.Status != nil {
		s := models.ItemStatus(*p.Status)
		if !s.Valid() {
			return fmt.Sprintf("unknown status %q", *p.Status)
		}
		if s.IsTerminal() {
			return fmt.Sprintf("status %q is set by the publishing pipeline only", s)
		}
	}
	if p.Version != nil && *p.Version < 0 {
		return "version must not be negative"
	}
	return ""
}

// listQuery holds parsed GET /api/items parameters.
type listQuery struct {
	status models.ItemStatus
	limit  int
	offset int
}

func parseListQuery(q url.Values) (listQuery, string) {
	lq := listQuery{limit: defaultPageSize}
	if s := q.Get("status"); s != "" {
		lq.status = models.ItemStatus(s)
		if !lq.status.Valid() {
			return lq, fmt.Sprintf("unknown status %q", s)
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return lq, "limit must be a positive integer"
		}
		lq.limit = min(n, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return lq, "offset must be a non-negative integer"
		}
		lq.offset = n
	}
	return lq, ""
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	return id, err == nil
}
