// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generation runs the batch that replaces the pending review queue
// with freshly generated candidates.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"socialpilot/internal/ai"
	"socialpilot/internal/corpus"
	"socialpilot/internal/metrics"
	"socialpilot/internal/models"
	"socialpilot/internal/platform"
)

const (
	DefaultCorpusThreshold = 50
	DefaultFetchCount      = 100
)

// ContentProvider produces candidate posts conditioned on a corpus bundle.
type ContentProvider interface {
	Name() string
	GenerateTexts(ctx context.Context, count int, bundle corpus.Bundle) ([]string, error)
}

// ItemWriter is the slice of the item store the pipeline writes to.
type ItemWriter interface {
	DeletePending(ctx context.Context) (int64, error)
	Create(ctx context.Context, c *models.ContentItem) (*models.ContentItem, error)
}

// HistoryStore is the historical corpus.
type HistoryStore interface {
	corpus.HistoryReader
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, h *models.HistoricalItem) (bool, error)
}

// Config tunes corpus refresh.
type Config struct {
	Account         string // timeline account to ingest
	CorpusThreshold int    // fetch when the corpus holds fewer items
	FetchCount      int    // items requested from the timeline source
}

// Pipeline wires the generation collaborators. Timeline, Moderator and
// Metrics are optional.
type Pipeline struct {
	Items     ItemWriter
	History   HistoryStore
	Edits     corpus.EditReader
	Analyzer  *corpus.Analyzer
	Providers []ContentProvider
	Timeline  platform.TimelineSource
	Moderator ai.Moderator
	Metrics   *metrics.Metrics
	Config    Config

	now func() time.Time
}

// Result summarises one batch.
type Result struct {
	Created        int               `json:"created"`
	Replaced       int64             `json:"replaced"`
	PerProvider    map[string]int    `json:"per_provider"`
	ProviderErrors map[string]string `json:"provider_errors,omitempty"`
	Dropped        int               `json:"dropped"`
	Fetched        int               `json:"fetched"`
	FetchError     string            `json:"fetch_error,omitempty"`
}

// providerBatch is one provider's contribution before it is persisted.
type providerBatch struct {
	name    string
	texts   []string
	dropped int
	err     error
}

// GenerateBatch refreshes the corpus if it is small, replaces every pending
// item and asks each provider for its share of target posts. A provider
// failure only loses that provider's share.
func (p *Pipeline) GenerateBatch(ctx context.Context, target int) (*Result, error) {
	if len(p.Providers) == 0 {
		return nil, fmt.Errorf("%w: no content providers configured", models.ErrValidation)
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: target count must not be negative", models.ErrValidation)
	}

	res := &Result{PerProvider: make(map[string]int, len(p.Providers))}

	p.refreshCorpus(ctx, res)

	bundle, err := p.analyzer().Load(ctx, p.History, p.Edits)
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	if bundle.Empty() {
		slog.Info("generation: corpus is empty, generating without examples")
	}

	deleted, err := p.Items.DeletePending(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear pending items: %w", err)
	}
	res.Replaced = deleted

	batches := p.generate(ctx, target, bundle)

	for _, b := range batches {
		res.PerProvider[b.name] = 0
		res.Dropped += b.dropped
		if b.err != nil {
			if res.ProviderErrors == nil {
				res.ProviderErrors = make(map[string]string)
			}
			res.ProviderErrors[b.name] = b.err.Error()
			slog.Error("generation: provider failed", "provider", b.name, "error", b.err)
			p.Metrics.Generated(b.name, 0, b.dropped, true)
			continue
		}

		for _, text := range b.texts {
			item := &models.ContentItem{
				Content: text,
				Source:  b.name,
				Status:  models.StatusPending,
			}
			if _, err := p.Items.Create(ctx, item); err != nil {
				return res, fmt.Errorf("store %s candidate: %w", b.name, err)
			}
			res.PerProvider[b.name]++
			res.Created++
		}
		p.Metrics.Generated(b.name, res.PerProvider[b.name], b.dropped, false)
	}

	slog.Info("generation: batch complete",
		"created", res.Created,
		"replaced", res.Replaced,
		"dropped", res.Dropped,
		"provider_errors", len(res.ProviderErrors),
	)
	return res, nil
}

// refreshCorpus ingests the timeline when the corpus is below threshold.
// Failures are recorded in res and never abort the batch.
func (p *Pipeline) refreshCorpus(ctx context.Context, res *Result) {
	if p.Timeline == nil || p.Config.Account == "" {
		return
	}
	threshold := p.Config.CorpusThreshold
	if threshold <= 0 {
		threshold = DefaultCorpusThreshold
	}
	count, err := p.History.Count(ctx)
	if err != nil {
		res.FetchError = err.Error()
		slog.Warn("generation: count corpus", "error", err)
		return
	}
	if count >= threshold {
		return
	}

	fetch := p.Config.FetchCount
	if fetch <= 0 {
		fetch = DefaultFetchCount
	}
	drafts, err := p.Timeline.FetchRecent(ctx, p.Config.Account, fetch)
	if err != nil {
		res.FetchError = err.Error()
		slog.Warn("generation: fetch timeline", "account", p.Config.Account, "error", err)
		return
	}

	fetchedAt := p.clock()
	for _, d := range drafts {
		h := &models.HistoricalItem{
			ExternalID: d.ExternalID,
			Content:    d.Content,
			PostedAt:   d.PostedAt,
			Engagement: d.Engagement,
			TopicTags:  p.analyzer().TagTopics(d.Content),
			FetchedAt:  fetchedAt,
		}
		if _, err := p.History.Upsert(ctx, h); err != nil {
			res.FetchError = err.Error()
			slog.Warn("generation: store historical item", "external_id", d.ExternalID, "error", err)
			continue
		}
		res.Fetched++
	}
	p.Metrics.Fetched(res.Fetched)
	slog.Info("generation: corpus refreshed", "account", p.Config.Account, "fetched", res.Fetched, "had", count)
}

// generate fans the target out over the providers concurrently. Results
// come back in provider order.
func (p *Pipeline) generate(ctx context.Context, target int, bundle corpus.Bundle) []providerBatch {
	shares := SplitTarget(target, len(p.Providers))
	batches := make([]providerBatch, len(p.Providers))

	// Goroutines never return an error so one provider cannot cancel another.
	var g errgroup.Group
	for i, prov := range p.Providers {
		batches[i].name = prov.Name()
		if shares[i] == 0 {
			continue
		}
		g.Go(func() error {
			texts, err := prov.GenerateTexts(ctx, shares[i], bundle)
			if err != nil {
				batches[i].err = err
				return nil
			}
			batches[i].texts, batches[i].dropped = p.filter(ctx, prov.Name(), texts, shares[i])
			return nil
		})
	}
	_ = g.Wait()
	return batches
}

// filter drops empty, over-length and flagged candidates and truncates to n.
func (p *Pipeline) filter(ctx context.Context, provider string, texts []string, n int) ([]string, int) {
	kept := make([]string, 0, n)
	dropped := 0
	for _, t := range texts {
		if len(kept) == n {
			break
		}
		t = strings.TrimSpace(t)
		if err := models.ValidatePostText(t); err != nil {
			dropped++
			continue
		}
		if p.Moderator != nil {
			mod, err := p.Moderator.CheckSafety(ctx, t)
			if err != nil {
				slog.Warn("generation: moderation unavailable, keeping candidate", "provider", provider, "error", err)
			} else if !mod.Safe {
				slog.Info("generation: candidate flagged", "provider", provider, "categories", mod.Categories)
				dropped++
				continue
			}
		}
		kept = append(kept, t)
	}
	return kept, dropped
}

func (p *Pipeline) analyzer() *corpus.Analyzer {
	if p.Analyzer == nil {
		p.Analyzer = corpus.NewAnalyzer(corpus.Config{})
	}
	return p.Analyzer
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now().UTC()
}

// SplitTarget divides target evenly over n providers. The remainder goes
// to the first provider.
func SplitTarget(target, n int) []int {
	if n <= 0 {
		return nil
	}
	shares := make([]int, n)
	if target <= 0 {
		return shares
	}
	for i := range shares {
		shares[i] = target / n
	}
	shares[0] += target % n
	return shares
}
