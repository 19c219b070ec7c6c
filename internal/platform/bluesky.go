// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"socialpilot/internal/models"
)

// BlueskyConfig holds AT Protocol credentials. PDS defaults to bsky.social.
type BlueskyConfig struct {
	PDS         string
	Handle      string
	AppPassword string
}

// Bluesky is an AT Protocol client. It is both a Publisher and a
// TimelineSource.
type Bluesky struct {
	cfg    BlueskyConfig
	client *http.Client
	retry  retrypolicy.RetryPolicy[[]byte]

	mu      sync.Mutex
	session *blueskySession
	now     func() time.Time
}

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

// NewBluesky creates a client. Sessions are created lazily.
func NewBluesky(cfg BlueskyConfig) *Bluesky {
	if cfg.PDS == "" {
		cfg.PDS = "https://bsky.social"
	}
	cfg.PDS = strings.TrimSuffix(cfg.PDS, "/")
	return &Bluesky{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		retry:  readRetryPolicy(),
		now:    time.Now,
	}
}

func (b *Bluesky) Name() string { return "bluesky" }

func (b *Bluesky) login(ctx context.Context, force bool) (*blueskySession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil && !force {
		return b.session, nil
	}
	var s blueskySession
	err := postJSON(ctx, b.client, "bluesky", b.cfg.PDS+"/xrpc/com.atproto.server.createSession", nil,
		map[string]string{"identifier": b.cfg.Handle, "password": b.cfg.AppPassword}, &s)
	if err != nil {
		return nil, fmt.Errorf("bluesky login: %w", err)
	}
	b.session = &s
	return b.session, nil
}

// Publish creates an app.bsky.feed.post record and returns its AT URI.
// An expired session is renewed once; the post itself is attempted at
// most once per accepted session.
func (b *Bluesky) Publish(ctx context.Context, text string) (string, error) {
	uri, err := b.createPost(ctx, text, false)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return b.createPost(ctx, text, true)
	}
	return uri, err
}

func (b *Bluesky) createPost(ctx context.Context, text string, relogin bool) (string, error) {
	s, err := b.login(ctx, relogin)
	if err != nil {
		return "", err
	}
	record := map[string]any{
		"repo":       s.DID,
		"collection": "app.bsky.feed.post",
		"record": map[string]any{
			"$type":     "app.bsky.feed.post",
			"text":      text,
			"createdAt": b.now().UTC().Format(time.RFC3339),
		},
	}
	var resp struct {
		URI string `json:"uri"`
		CID string `json:"cid"`
	}
	err = postJSON(ctx, b.client, "bluesky", b.cfg.PDS+"/xrpc/com.atproto.repo.createRecord",
		map[string]string{"Authorization": "Bearer " + s.AccessJwt}, record, &resp)
	if err != nil {
		return "", err
	}
	if resp.URI == "" {
		return "", fmt.Errorf("bluesky: response has no record uri")
	}
	return resp.URI, nil
}

// FetchRecent returns up to limit of the actor's own posts, skipping
// replies and reposts.
func (b *Bluesky) FetchRecent(ctx context.Context, account string, limit int) ([]models.HistoricalDraft, error) {
	headers := map[string]string{}
	if b.cfg.Handle != "" && b.cfg.AppPassword != "" {
		s, err := b.login(ctx, false)
		if err != nil {
			return nil, err
		}
		headers["Authorization"] = "Bearer " + s.AccessJwt
	}

	var out []models.HistoricalDraft
	cursor := ""
	for len(out) < limit {
		q := url.Values{}
		q.Set("actor", strings.TrimPrefix(account, "@"))
		q.Set("limit", strconv.Itoa(clamp(limit-len(out), 1, 100)))
		q.Set("filter", "posts_no_replies")
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page blueskyFeed
		if err := getJSON(ctx, b.client, b.retry, "bluesky", b.cfg.PDS+"/xrpc/app.bsky.feed.getAuthorFeed?"+q.Encode(), headers, &page); err != nil {
			return nil, fmt.Errorf("bluesky feed: %w", err)
		}
		for _, item := range page.Feed {
			if item.Reason != nil {
				continue
			}
			out = append(out, models.HistoricalDraft{
				ExternalID: item.Post.URI,
				Content:    item.Post.Record.Text,
				PostedAt:   item.Post.Record.CreatedAt,
				Engagement: models.Engagement{
					models.SignalLikes:   item.Post.LikeCount,
					models.SignalReposts: item.Post.RepostCount,
					models.SignalReplies: item.Post.ReplyCount,
					models.SignalQuotes:  item.Post.QuoteCount,
				},
			})
		}
		cursor = page.Cursor
		if cursor == "" || len(page.Feed) == 0 {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type blueskyFeed struct {
	Feed []struct {
		Post struct {
			URI    string `json:"uri"`
			Record struct {
				Text      string    `json:"text"`
				CreatedAt time.Time `json:"createdAt"`
			} `json:"record"`
			LikeCount   int `json:"likeCount"`
			RepostCount int `json:"repostCount"`
			ReplyCount  int `json:"replyCount"`
			QuoteCount  int `json:"quoteCount"`
		} `json:"post"`
		Reason *struct {
			Type string `json:"$type"`
		} `json:"reason,omitempty"`
	} `json:"feed"`
	Cursor string `json:"cursor"`
}
