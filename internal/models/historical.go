// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Engagement signal names stored in Engagement maps.
const (
	SignalLikes   = "likes"
	SignalReposts = "reposts"
	SignalReplies = "replies"
	SignalQuotes  = "quotes"
)

// Engagement holds per-signal counts for a past publication.
type Engagement map[string]int

// Score weights reposts twice as much as likes.
func (e Engagement) Score() int {
	return e[SignalLikes] + 2*e[SignalReposts]
}

// Total is the unweighted sum of likes and reposts.
func (e Engagement) Total() int {
	return e[SignalLikes] + e[SignalReposts]
}

// HistoricalItem is a previously published post ingested for voice
// analysis. ExternalID is unique across the corpus.
type HistoricalItem struct {
	ID         uuid.UUID  `json:"id"`
	ExternalID string     `json:"external_id"`
	Content    string     `json:"content"`
	PostedAt   time.Time  `json:"posted_at"`
	Engagement Engagement `json:"engagement"`
	TopicTags  []string   `json:"topic_tags"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

// HistoricalDraft is what a timeline source returns before the item is
// tagged and stored.
type HistoricalDraft struct {
	ExternalID string
	Content    string
	PostedAt   time.Time
	Engagement Engagement
}
