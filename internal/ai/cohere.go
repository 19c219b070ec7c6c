// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// cohereProvider implements the Provider interface with the Cohere SDK's
// chat endpoint.
type cohereProvider struct {
	config ProviderConfig
	client *cohereclient.Client
	retry  retrypolicy.RetryPolicy[[]byte]
}

func newCohere(cfg ProviderConfig, retry retrypolicy.RetryPolicy[[]byte]) *cohereProvider {
	if cfg.Model == "" {
		cfg.Model = "command-r-plus"
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	var client *cohereclient.Client
	if cfg.BaseURL != "" {
		client = cohereclient.NewClient(
			cohereclient.WithToken(cfg.APIKey),
			cohereclient.WithHTTPClient(httpClient),
			cohereclient.WithBaseURL(cfg.BaseURL),
		)
	} else {
		client = cohereclient.NewClient(
			cohereclient.WithToken(cfg.APIKey),
			cohereclient.WithHTTPClient(httpClient),
		)
	}
	return &cohereProvider{config: cfg, client: client, retry: retry}
}

func (p *cohereProvider) Name() string { return "cohere" }

// Generate sends the user prompt with the system prompt as preamble.
func (p *cohereProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := p.config.Model
	maxTokens := p.config.maxTokens()
	req := &cohere.ChatRequest{
		Message:   userPrompt,
		Model:     &model,
		MaxTokens: &maxTokens,
	}
	if systemPrompt != "" {
		req.Preamble = &systemPrompt
	}
	if p.config.Temperature > 0 {
		temp := p.config.Temperature
		req.Temperature = &temp
	}

	out, err := withRetry(ctx, p.retry, func() ([]byte, error) {
		resp, err := p.client.Chat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("cohere chat: %w", err)
		}
		if resp == nil {
			return nil, permanent(fmt.Errorf("cohere: empty response"))
		}
		return []byte(resp.Text), nil
	})
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("cohere: no text in response")
	}
	return string(out), nil
}
