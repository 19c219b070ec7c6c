// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides a unified interface for interacting with multiple
// LLM backends (OpenAI, Gemini, Claude, Mistral, Cohere). Each backend
// implements the Provider interface, and the Registry resolves them by name.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Provider defines the interface that all AI backends must implement.
// Each backend handles its own HTTP communication and response parsing.
type Provider interface {
	// Generate sends a prompt to the LLM and returns the generated text.
	// systemPrompt sets the model's behaviour; userPrompt is the request.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name returns the provider identifier (e.g., "openai", "claude").
	Name() string
}

// ProviderConfig holds the credentials and settings for a single backend.
type ProviderConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

func (c ProviderConfig) maxTokens() int {
	if c.MaxTokens <= 0 {
		return 2000
	}
	return c.MaxTokens
}

// Registry holds the configured backends and the optional moderator.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	moderator Moderator // nil when no moderation API is available
}

// NewRegistry creates a registry and initialises a backend for every config
// that has a non-empty API key. Backends without keys are skipped. When
// moderate is set, OpenAI's moderation endpoint is preferred and Mistral's
// is the fallback.
func NewRegistry(configs map[string]ProviderConfig, retry RetryConfig, moderate bool) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	policy := newRetryPolicy(retry)

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		backend := &httpBackend{name: name, client: &http.Client{Timeout: 60 * time.Second}, retry: policy}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg, backend)
		case "gemini":
			r.providers[name] = newGemini(cfg, backend)
		case "claude":
			r.providers[name] = newClaude(cfg, backend)
		case "mistral":
			r.providers[name] = newMistral(cfg, backend)
		case "cohere":
			r.providers[name] = newCohere(cfg, policy)
		}
	}

	if !moderate {
		return r
	}
	openaiCfg := configs["openai"]
	mistralCfg := configs["mistral"]
	switch {
	case openaiCfg.APIKey != "" && mistralCfg.APIKey != "":
		r.moderator = &fallbackModerator{
			primary:   newOpenAIModerator(openaiCfg.APIKey, openaiCfg.BaseURL),
			secondary: newMistralModerator(mistralCfg.APIKey, mistralCfg.BaseURL),
		}
	case openaiCfg.APIKey != "":
		r.moderator = newOpenAIModerator(openaiCfg.APIKey, openaiCfg.BaseURL)
	case mistralCfg.APIKey != "":
		r.moderator = newMistralModerator(mistralCfg.APIKey, mistralCfg.BaseURL)
	}
	return r
}

// Get returns the named backend.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("ai: provider %q is not available (no API key?)", name)
	}
	return p, nil
}

// Select resolves names in order. Unknown or unconfigured names are an
// error listing every missing backend.
func (r *Registry) Select(names []string) ([]Provider, error) {
	var out []Provider
	var missing []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		p, err := r.Get(n)
		if err != nil {
			missing = append(missing, n)
			continue
		}
		out = append(out, p)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("ai: providers not configured: %s", strings.Join(missing, ", "))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ai: no providers selected")
	}
	return out, nil
}

// Available returns the sorted names of all configured backends.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds or replaces a backend.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// HasProvider checks whether a named backend is configured.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}

// Moderator returns the configured moderator, or nil.
func (r *Registry) Moderator() Moderator {
	return r.moderator
}

// CheckText runs text through the moderator. With no moderator configured
// every text is considered safe.
func (r *Registry) CheckText(ctx context.Context, text string) (*ModerationResult, error) {
	if r.moderator == nil {
		return &ModerationResult{Safe: true}, nil
	}
	return r.moderator.CheckSafety(ctx, text)
}
