// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/oauth2"

	"socialpilot/internal/models"
)

const defaultTwitterTokenURL = "https://api.x.com/2/oauth2/token"

// TwitterConfig holds X API v2 credentials. Reads use the app bearer token;
// posting uses a user-context OAuth 2.0 refresh token.
type TwitterConfig struct {
	BaseURL      string
	BearerToken  string
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// Twitter is an X API v2 client. It is both a Publisher and a
// TimelineSource.
type Twitter struct {
	baseURL string
	read    *http.Client
	write   *http.Client
	retry   retrypolicy.RetryPolicy[[]byte]
}

// NewTwitter builds the client. The OAuth2 token sources refresh access
// tokens on demand.
func NewTwitter(ctx context.Context, cfg TwitterConfig) *Twitter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.com"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTwitterTokenURL
	}
	base := &http.Client{Timeout: 30 * time.Second}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	read := base
	if cfg.BearerToken != "" {
		read = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.BearerToken,
			TokenType:   "Bearer",
		}))
	}

	write := read
	if cfg.RefreshToken != "" {
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInHeader},
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		}
		write = oc.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	}

	return &Twitter{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		read:    read,
		write:   write,
		retry:   readRetryPolicy(),
	}
}

func (t *Twitter) Name() string { return "twitter" }

// Publish creates a tweet. It makes exactly one attempt.
func (t *Twitter) Publish(ctx context.Context, text string) (string, error) {
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := postJSON(ctx, t.write, "twitter", t.baseURL+"/2/tweets", nil, map[string]string{"text": text}, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("twitter: response has no tweet id")
	}
	return resp.Data.ID, nil
}

// FetchRecent returns up to limit of the account's own tweets, excluding
// retweets and replies, newest first.
func (t *Twitter) FetchRecent(ctx context.Context, account string, limit int) ([]models.HistoricalDraft, error) {
	userID, err := t.userID(ctx, strings.TrimPrefix(account, "@"))
	if err != nil {
		return nil, err
	}

	var out []models.HistoricalDraft
	next := ""
	for len(out) < limit {
		q := url.Values{}
		q.Set("max_results", strconv.Itoa(clamp(limit-len(out), 5, 100)))
		q.Set("tweet.fields", "created_at,public_metrics")
		q.Set("exclude", "retweets,replies")
		if next != "" {
			q.Set("pagination_token", next)
		}

		var page twitterTimeline
		if err := getJSON(ctx, t.read, t.retry, "twitter", t.baseURL+"/2/users/"+userID+"/tweets?"+q.Encode(), nil, &page); err != nil {
			return nil, fmt.Errorf("twitter timeline: %w", err)
		}
		for _, tw := range page.Data {
			out = append(out, models.HistoricalDraft{
				ExternalID: tw.ID,
				Content:    tw.Text,
				PostedAt:   tw.CreatedAt,
				Engagement: models.Engagement{
					models.SignalLikes:   tw.Metrics.Likes,
					models.SignalReposts: tw.Metrics.Retweets,
					models.SignalReplies: tw.Metrics.Replies,
					models.SignalQuotes:  tw.Metrics.Quotes,
				},
			})
		}
		next = page.Meta.NextToken
		if next == "" || len(page.Data) == 0 {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *Twitter) userID(ctx context.Context, username string) (string, error) {
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := getJSON(ctx, t.read, t.retry, "twitter", t.baseURL+"/2/users/by/username/"+url.PathEscape(username), nil, &resp); err != nil {
		return "", fmt.Errorf("twitter user lookup: %w", err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("twitter: user %q not found: %w", username, models.ErrNotFound)
	}
	return resp.Data.ID, nil
}

type twitterTimeline struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
		Metrics   struct {
			Likes    int `json:"like_count"`
			Retweets int `json:"retweet_count"`
			Replies  int `json:"reply_count"`
			Quotes   int `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
