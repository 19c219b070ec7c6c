// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"socialpilot/internal/ai"
	"socialpilot/internal/cache"
	"socialpilot/internal/config"
	"socialpilot/internal/corpus"
	"socialpilot/internal/generation"
	"socialpilot/internal/handlers"
	"socialpilot/internal/metrics"
	"socialpilot/internal/models"
	"socialpilot/internal/platform"
	"socialpilot/internal/publishing"
	"socialpilot/internal/schedule"
	"socialpilot/internal/scheduler"
	"socialpilot/internal/store"
	"socialpilot/internal/writer"
)

// jobSet holds what the generation and publishing jobs are built from.
type jobSet struct {
	cfg       *config.Config
	items     *store.ItemStore
	history   *store.HistoricalStore
	edits     *store.EditStore
	analyzer  *corpus.Analyzer
	writers   []*writer.Writer
	timeline  platform.TimelineSource
	publisher platform.Publisher
	moderator ai.Moderator
	metrics   *metrics.Metrics
	snapshots *cache.SnapshotCache
}

// register adds both jobs to the orchestrator and schedules them: the
// daily generation run, the fixed publish cadence, and one publish entry
// per active posting schedule of the configured platform.
func (s jobSet) register(orch *scheduler.Orchestrator, schedules []models.PostingSchedule) error {
	providers := make([]generation.ContentProvider, 0, len(s.writers))
	for _, w := range s.writers {
		providers = append(providers, w)
	}
	gen := &generation.Pipeline{
		Items:     s.items,
		History:   s.history,
		Edits:     s.edits,
		Analyzer:  s.analyzer,
		Providers: providers,
		Timeline:  s.timeline,
		Moderator: s.moderator,
		Metrics:   s.metrics,
		Config: generation.Config{
			Account:         s.cfg.TimelineAccount,
			CorpusThreshold: s.cfg.CorpusThreshold,
			FetchCount:      s.cfg.CorpusFetchCount,
		},
	}
	pub := publishing.New(s.items, s.publisher, s.metrics)

	orch.Register(scheduler.JobGeneration, func(ctx context.Context) (any, error) {
		res, err := gen.GenerateBatch(ctx, generation.TargetFrom(ctx, s.cfg.PostsPerDay))
		if s.snapshots != nil {
			s.snapshots.InvalidateAll(ctx)
		}
		return res, err
	})
	orch.Register(scheduler.JobPublishing, func(ctx context.Context) (any, error) {
		return pub.PublishDue(ctx, time.Now().UTC())
	})

	if err := orch.Schedule(scheduler.JobGeneration, s.cfg.GenerationSpec()); err != nil {
		return err
	}
	if s.cfg.PublishCron != "" {
		if err := orch.Schedule(scheduler.JobPublishing, s.cfg.PublishCron); err != nil {
			return err
		}
	}
	for _, ps := range schedule.Active(schedules, s.cfg.Platform) {
		spec, err := ps.CronSpec()
		if err != nil {
			return fmt.Errorf("posting schedule %s %s: %w", ps.Platform, ps.TimeSlot, err)
		}
		if err := orch.Schedule(scheduler.JobPublishing, spec); err != nil {
			return err
		}
	}
	return nil
}

// contentWriters wraps each configured generation backend in a Writer with
// the brand voice. Missing backends are logged; generation then fails with
// a validation error until a key is configured.
func contentWriters(registry *ai.Registry, cfg *config.Config) []*writer.Writer {
	llms, err := registry.Select(cfg.GenerationProviders)
	if err != nil {
		slog.Warn("generation providers unavailable", "error", err, "available", registry.Available())
		return nil
	}
	voice := writer.Voice{Brand: cfg.BrandName, Handle: cfg.BrandHandle}
	out := make([]*writer.Writer, 0, len(llms))
	for _, llm := range llms {
		out = append(out, writer.New(llm, voice))
	}
	return out
}

// firstExpander returns the writer used for long-form expansion.
func firstExpander(writers []*writer.Writer) handlers.Expander {
	if len(writers) == 0 {
		return nil
	}
	return writers[0]
}

// platformClients builds the publisher and the timeline source. A platform
// timeline reuses the publisher's client.
func platformClients(ctx context.Context, cfg *config.Config) (platform.Publisher, platform.TimelineSource, error) {
	var pub interface {
		platform.Publisher
		platform.TimelineSource
	}
	switch cfg.Platform {
	case "twitter":
		pub = platform.NewTwitter(ctx, platform.TwitterConfig{
			BaseURL:      cfg.TwitterBaseURL,
			BearerToken:  cfg.TwitterBearerToken,
			ClientID:     cfg.TwitterClientID,
			ClientSecret: cfg.TwitterClientSecret,
			RefreshToken: cfg.TwitterRefreshToken,
		})
	case "bluesky":
		pub = platform.NewBluesky(platform.BlueskyConfig{
			PDS:         cfg.BlueskyPDS,
			Handle:      cfg.BlueskyHandle,
			AppPassword: cfg.BlueskyAppPassword,
		})
	default:
		return nil, nil, fmt.Errorf("unknown platform %q", cfg.Platform)
	}

	switch cfg.TimelineSource {
	case "rss":
		return pub, platform.NewRSS(cfg.TimelineRSSURL), nil
	case "platform", "":
		return pub, pub, nil
	default:
		return nil, nil, fmt.Errorf("unknown timeline source %q", cfg.TimelineSource)
	}
}
