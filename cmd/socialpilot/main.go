// Package main is the entry point for the SocialPilot server. It loads
// configuration, connects to services, registers the generation and
// publishing jobs with the orchestrator, and serves the HTTP API with
// graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"socialpilot/internal/ai"
	"socialpilot/internal/cache"
	"socialpilot/internal/config"
	"socialpilot/internal/corpus"
	"socialpilot/internal/database"
	"socialpilot/internal/handlers"
	"socialpilot/internal/metrics"
	"socialpilot/internal/middleware"
	"socialpilot/internal/router"
	"socialpilot/internal/schedule"
	"socialpilot/internal/scheduler"
	"socialpilot/internal/store"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"platform", cfg.Platform,
		"timeline_source", cfg.TimelineSource,
		"timezone", cfg.Timezone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	schedules, err := schedule.Load(cfg.SchedulesFile)
	if err != nil {
		slog.Error("failed to load posting schedules", "error", err)
		os.Exit(1)
	}

	// Valkey is optional: without it jobs are guarded in-process only and
	// the corpus analysis is not cached.
	var valkey *redis.Client
	if cfg.ValkeyEnabled() {
		valkey, err = cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
		if err != nil {
			slog.Warn("valkey unavailable, running without leases and snapshot cache", "error", err)
			valkey = nil
		} else {
			defer valkey.Close()
		}
	}

	m := metrics.New(nil)

	items := store.NewItemStore(db)
	history := store.NewHistoricalStore(db)
	edits := store.NewEditStore(db)

	analyzer := corpus.NewAnalyzer(corpus.Config{
		Keywords:      cfg.TopicKeywords,
		ExemplarCount: cfg.ExemplarCount,
	})

	retry := ai.DefaultRetryConfig()
	retry.MaxRetries = cfg.AIMaxRetries
	registry := ai.NewRegistry(cfg.AIProviders(), retry, cfg.ModerationEnabled)
	slog.Info("ai providers initialized",
		"available", registry.Available(),
		"generation", cfg.GenerationProviders,
		"moderation", registry.Moderator() != nil,
	)
	writers := contentWriters(registry, cfg)

	publisher, timeline, err := platformClients(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize platform client", "error", err)
		os.Exit(1)
	}

	var snapshots *cache.SnapshotCache
	var leases scheduler.LeaseProvider
	if valkey != nil {
		snapshots = cache.NewSnapshotCache(valkey, cache.DefaultSnapshotTTL)
		leases = scheduler.ValkeyLeases(cache.NewLeaser(valkey, cfg.JobLeaseTTL))
	}

	orch := scheduler.New(scheduler.Options{
		Leases:   leases,
		Metrics:  m,
		Location: cfg.Location(),
	})
	jobs := jobSet{
		cfg:       cfg,
		items:     items,
		history:   history,
		edits:     edits,
		analyzer:  analyzer,
		writers:   writers,
		timeline:  timeline,
		publisher: publisher,
		moderator: registry.Moderator(),
		metrics:   m,
		snapshots: snapshots,
	}
	if err := jobs.register(orch, schedules); err != nil {
		slog.Error("failed to schedule jobs", "error", err)
		os.Exit(1)
	}
	orch.Start(ctx)

	api := handlers.NewAPI(handlers.Deps{
		Items:     items,
		Edits:     edits,
		History:   history,
		Analyzer:  analyzer,
		Expander:  firstExpander(writers),
		Jobs:      orch,
		Snapshots: snapshotsOrNil(snapshots),
		Schedules: schedules,
		Config: handlers.PublicConfig{
			Env:                 cfg.Env,
			Platform:            cfg.Platform,
			TimelineSource:      cfg.TimelineSource,
			TimelineAccount:     cfg.TimelineAccount,
			GenerationProviders: cfg.GenerationProviders,
			ModerationEnabled:   registry.Moderator() != nil,
			PostsPerDay:         cfg.PostsPerDay,
			GenerationTime:      cfg.ContentGenerationTime,
			PublishCron:         cfg.PublishCron,
			Timezone:            cfg.Timezone,
			CorpusThreshold:     cfg.CorpusThreshold,
			LeasesEnabled:       leases != nil,
		},
	})

	var limiter *middleware.RateLimiter
	if cfg.TriggerRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.TriggerRateLimit, time.Minute)
		defer limiter.Stop()
	}
	r := router.New(api, router.Options{
		TriggerAuth: middleware.TriggerAuth{
			Secret:    cfg.TriggerSecret,
			Hash:      cfg.TriggerSecretHash,
			AllowOpen: cfg.IsDev(),
		},
		TriggerLimiter: limiter,
		Metrics:        m,
	})

	// Trigger requests run a whole cycle synchronously, so WriteTimeout
	// must cover a generation batch across every provider.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Wait for timer-fired cycles that are still running.
	select {
	case <-orch.Stop().Done():
	case <-shutdownCtx.Done():
		slog.Warn("scheduler jobs still running at shutdown")
	}

	slog.Info("server stopped gracefully")
}

// snapshotsOrNil keeps a nil *SnapshotCache from becoming a non-nil
// interface value.
func snapshotsOrNil(sc *cache.SnapshotCache) handlers.Snapshots {
	if sc == nil {
		return nil
	}
	return sc
}
