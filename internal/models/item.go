// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and the lifecycle rules of a content item.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxPostLength is the platform limit for a single post, in characters.
const MaxPostLength = 280

// ItemStatus represents the lifecycle state of a content item.
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusApproved  ItemStatus = "approved"
	StatusScheduled ItemStatus = "scheduled"
	StatusPosted    ItemStatus = "posted"
	StatusFailed    ItemStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusScheduled, StatusPosted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ItemStatus) IsTerminal() bool {
	return s == StatusPosted || s == StatusFailed
}

// ContentItem is a generated post candidate moving through review to
// publication. Version is bumped by every persisted mutation and is used
// for optimistic concurrency between reviewers and the publishing pipeline.
type ContentItem struct {
	ID              uuid.UUID  `json:"id"`
	Content         string     `json:"content"`
	Source          string     `json:"source"`
	Status          ItemStatus `json:"status"`
	ScheduledTime   *time.Time `json:"scheduled_time,omitempty"`
	PostedTime      *time.Time `json:"posted_time,omitempty"`
	ExternalID      *string    `json:"external_id,omitempty"`
	Edited          bool       `json:"edited"`
	OriginalContent *string    `json:"original_content,omitempty"`
	LastError       *string    `json:"last_error,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CharCount returns the length of s as the platform counts it.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// ValidatePostText checks that text is non-empty after trimming and fits
// within MaxPostLength.
func ValidatePostText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: content is empty", ErrValidation)
	}
	if n := CharCount(text); n > MaxPostLength {
		return fmt.Errorf("%w: content is %d characters (max %d)", ErrValidation, n, MaxPostLength)
	}
	return nil
}

// IsDue reports whether the item is scheduled at or before now.
func (c *ContentItem) IsDue(now time.Time) bool {
	return c.Status == StatusScheduled && c.ScheduledTime != nil && !c.ScheduledTime.After(now)
}

// Editable reports whether a reviewer may still change the body.
func (c *ContentItem) Editable() bool {
	switch c.Status {
	case StatusPending, StatusApproved, StatusScheduled:
		return true
	}
	return false
}

// Edit replaces the body. The generated text is preserved in
// OriginalContent the first time the body changes. It reports whether the
// body actually changed.
func (c *ContentItem) Edit(body string) (bool, error) {
	if !c.Editable() {
		return false, fmt.Errorf("%w: cannot edit a %s item", ErrInvalidTransition, c.Status)
	}
	body = strings.TrimSpace(body)
	if err := ValidatePostText(body); err != nil {
		return false, err
	}
	if body == c.Content {
		return false, nil
	}
	if c.OriginalContent == nil {
		orig := c.Content
		c.OriginalContent = &orig
	}
	c.Content = body
	c.Edited = *c.OriginalContent != body
	return true, nil
}

// TransitionTo applies a reviewer-driven status change. Scheduling requires
// at; moving back to pending or approved clears the scheduled time.
// Rescheduling an already scheduled item is allowed.
func (c *ContentItem) TransitionTo(to ItemStatus, at *time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	from := c.Status
	switch {
	case from == StatusPending && to == StatusApproved,
		from == StatusApproved && to == StatusPending,
		from == to && (to == StatusPending || to == StatusApproved):
		c.Status = to
		c.ScheduledTime = nil
		return nil
	case to == StatusScheduled && (from == StatusPending || from == StatusApproved || from == StatusScheduled):
		if at == nil || at.IsZero() {
			return fmt.Errorf("%w: scheduled_time is required to schedule", ErrValidation)
		}
		t := at.UTC()
		c.Status = StatusScheduled
		c.ScheduledTime = &t
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// MarkPosted records a successful delivery.
func (c *ContentItem) MarkPosted(at time.Time, externalID string) error {
	if c.Status != StatusScheduled {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, StatusPosted)
	}
	if externalID == "" {
		return fmt.Errorf("%w: external id is required", ErrValidation)
	}
	t := at.UTC()
	c.Status = StatusPosted
	c.PostedTime = &t
	c.ExternalID = &externalID
	c.LastError = nil
	return nil
}

// MarkFailed records a failed delivery. Failed is terminal.
func (c *ContentItem) MarkFailed(reason string) error {
	if c.Status != StatusScheduled {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, StatusFailed)
	}
	c.Status = StatusFailed
	c.LastError = &reason
	return nil
}

// CheckInvariants verifies the field combinations allowed for the item's
// status.
func (c *ContentItem) CheckInvariants() error {
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, c.Status)
	}
	scheduledExpected := c.Status == StatusScheduled || c.Status.IsTerminal()
	if scheduledExpected && c.ScheduledTime == nil {
		return fmt.Errorf("%w: %s item has no scheduled_time", ErrValidation, c.Status)
	}
	if (c.Status == StatusPending || c.Status == StatusApproved) && c.ScheduledTime != nil {
		return fmt.Errorf("%w: %s item has a scheduled_time", ErrValidation, c.Status)
	}
	posted := c.Status == StatusPosted
	if posted != (c.PostedTime != nil) || posted != (c.ExternalID != nil) {
		return fmt.Errorf("%w: posted_time and external_id must be set only when posted", ErrValidation)
	}
	if c.Edited && (c.OriginalContent == nil || *c.OriginalContent == c.Content) {
		return fmt.Errorf("%w: edited item must keep a different original_content", ErrValidation)
	}
	return nil
}
