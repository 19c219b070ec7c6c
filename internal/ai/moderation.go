// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ModerationResult contains the outcome of a safety check.
type ModerationResult struct {
	Safe       bool     // true if the text passes moderation
	Categories []string // flagged category names, sorted (empty when safe)
}

// Moderator checks generated text for policy violations before it is
// offered to reviewers.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

func newModerationBackend(name string) *httpBackend {
	return &httpBackend{
		name:   name,
		client: &http.Client{Timeout: 15 * time.Second},
		retry:  newRetryPolicy(RetryConfig{MaxRetries: 1}),
	}
}

// --- OpenAI Moderation (free endpoint) ---

// openAIModerator uses the OpenAI Moderation API (POST /v1/moderations).
type openAIModerator struct {
	apiKey  string
	baseURL string
	backend *httpBackend
}

func newOpenAIModerator(apiKey, baseURL string) *openAIModerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIModerator{apiKey: apiKey, baseURL: baseURL, backend: newModerationBackend("openai moderation")}
}

func (m *openAIModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	data, err := m.backend.postJSON(ctx, m.baseURL+"/moderations", map[string]string{
		"Authorization": "Bearer " + m.apiKey,
	}, moderationRequest{Model: "omni-moderation-latest", Input: text})
	if err != nil {
		return nil, err
	}

	var result openAIModResponse
	if err := decode("openai moderation", data, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 || !result.Results[0].Flagged {
		return &ModerationResult{Safe: true}, nil
	}
	return &ModerationResult{Safe: false, Categories: flaggedCategories(result.Results[0].Categories)}, nil
}

// --- Mistral Moderation (paid, fallback) ---

// mistralModerator uses the Mistral Moderation API (POST /v1/moderations).
type mistralModerator struct {
	apiKey  string
	baseURL string
	backend *httpBackend
}

func newMistralModerator(apiKey, baseURL string) *mistralModerator {
	baseURL = strings.TrimSuffix(baseURL, "/v1")
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	return &mistralModerator{apiKey: apiKey, baseURL: baseURL, backend: newModerationBackend("mistral moderation")}
}

func (m *mistralModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	data, err := m.backend.postJSON(ctx, m.baseURL+"/v1/moderations", map[string]string{
		"Authorization": "Bearer " + m.apiKey,
	}, moderationRequest{Model: "mistral-moderation-latest", Input: text})
	if err != nil {
		return nil, err
	}

	var result mistralModResponse
	if err := decode("mistral moderation", data, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return &ModerationResult{Safe: true}, nil
	}

	// Mistral has no top-level "flagged"; any flagged category counts.
	flagged := flaggedCategories(result.Results[0].Categories)
	return &ModerationResult{Safe: len(flagged) == 0, Categories: flagged}, nil
}

// fallbackModerator switches to the secondary moderator when the primary
// rejects the credentials, e.g. a project-scoped OpenAI key.
type fallbackModerator struct {
	primary   Moderator
	secondary Moderator
}

func (m *fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	res, err := m.primary.CheckSafety(ctx, text)
	if err == nil {
		return res, nil
	}
	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		slog.Warn("primary moderator rejected credentials, using fallback", "error", err)
		return m.secondary.CheckSafety(ctx, text)
	}
	return nil, err
}

// flaggedCategories converts "hate/threatening" into "hate (threatening)"
// and underscores into spaces.
func flaggedCategories(cats map[string]bool) []string {
	var flagged []string
	for cat, isFlagged := range cats {
		if !isFlagged {
			continue
		}
		display := cat
		if strings.Contains(cat, "/") {
			display = strings.ReplaceAll(cat, "/", " (") + ")"
		}
		flagged = append(flagged, strings.ReplaceAll(display, "_", " "))
	}
	sort.Strings(flagged)
	return flagged
}

// --- Request/Response types ---

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIModResponse struct {
	Results []openAIModResult `json:"results"`
}

type openAIModResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

type mistralModResponse struct {
	Results []mistralModResult `json:"results"`
}

type mistralModResult struct {
	Categories map[string]bool `json:"categories"`
}
