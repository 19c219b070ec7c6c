// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"socialpilot/internal/ai"
	"socialpilot/internal/models"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible). Empty host disables leases and caching.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// LLM backends
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	ClaudeKey      string
	ClaudeModel    string
	ClaudeBaseURL  string
	GeminiKey      string
	GeminiModel    string
	GeminiBaseURL  string
	MistralKey     string
	MistralModel   string
	MistralBaseURL string
	CohereKey      string
	CohereModel    string
	CohereBaseURL  string

	GenerationProviders []string // provider names, in split order
	ModerationEnabled   bool
	AIMaxRetries        int

	// Publishing platform and timeline source
	Platform        string // "twitter" or "bluesky"
	TimelineSource  string // "platform" or "rss"
	TimelineAccount string
	TimelineRSSURL  string

	TwitterBaseURL      string
	TwitterBearerToken  string
	TwitterClientID     string
	TwitterClientSecret string
	TwitterRefreshToken string

	BlueskyHandle      string
	BlueskyAppPassword string
	BlueskyPDS         string

	// Brand voice
	BrandName   string
	BrandHandle string

	// Scheduling
	ContentGenerationTime string // HH:MM
	GenerationCron        string
	PublishCron           string
	Timezone              string
	PostsPerDay           int
	CorpusThreshold       int
	CorpusFetchCount      int
	ExemplarCount         int
	TopicKeywords         []string
	SchedulesFile         string
	JobLeaseTTL           time.Duration

	// External trigger origin validation
	TriggerSecret     string
	TriggerSecretHash string // bcrypt
	TriggerRateLimit  int    // requests per minute per client
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "socialpilot"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "socialpilot"),

		ValkeyHost:     os.Getenv("VALKEY_HOST"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envOrDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:  envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ClaudeKey:      os.Getenv("CLAUDE_API_KEY"),
		ClaudeModel:    envOrDefault("CLAUDE_MODEL", "claude-sonnet-4-5"),
		ClaudeBaseURL:  envOrDefault("CLAUDE_BASE_URL", "https://api.anthropic.com"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:  envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		MistralKey:     os.Getenv("MISTRAL_API_KEY"),
		MistralModel:   envOrDefault("MISTRAL_MODEL", "mistral-large-latest"),
		MistralBaseURL: envOrDefault("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
		CohereKey:      os.Getenv("COHERE_API_KEY"),
		CohereModel:    envOrDefault("COHERE_MODEL", "command-r-plus"),
		CohereBaseURL:  os.Getenv("COHERE_BASE_URL"),

		GenerationProviders: envList("GENERATION_PROVIDERS", []string{"claude", "openai"}),

		Platform:        envOrDefault("PLATFORM", "twitter"),
		TimelineSource:  envOrDefault("TIMELINE_SOURCE", "platform"),
		TimelineAccount: os.Getenv("TIMELINE_ACCOUNT"),
		TimelineRSSURL:  os.Getenv("TIMELINE_RSS_URL"),

		TwitterBaseURL:      envOrDefault("TWITTER_BASE_URL", "https://api.x.com"),
		TwitterBearerToken:  os.Getenv("TWITTER_BEARER_TOKEN"),
		TwitterClientID:     os.Getenv("TWITTER_CLIENT_ID"),
		TwitterClientSecret: os.Getenv("TWITTER_CLIENT_SECRET"),
		TwitterRefreshToken: os.Getenv("TWITTER_REFRESH_TOKEN"),

		BlueskyHandle:      os.Getenv("BLUESKY_HANDLE"),
		BlueskyAppPassword: os.Getenv("BLUESKY_APP_PASSWORD"),
		BlueskyPDS:         envOrDefault("BLUESKY_PDS", "https://bsky.social"),

		BrandName:   os.Getenv("BRAND_NAME"),
		BrandHandle: os.Getenv("BRAND_HANDLE"),

		ContentGenerationTime: envOrDefault("CONTENT_GENERATION_TIME", "09:00"),
		GenerationCron:        os.Getenv("GENERATION_CRON"),
		PublishCron:           envOrDefault("PUBLISH_CRON", "0 * * * *"),
		Timezone:              envOrDefault("SCHEDULER_TIMEZONE", "UTC"),
		TopicKeywords:         envList("TOPIC_KEYWORDS", nil),
		SchedulesFile:         os.Getenv("SCHEDULES_FILE"),

		TriggerSecret:     os.Getenv("TRIGGER_SECRET"),
		TriggerSecretHash: os.Getenv("TRIGGER_SECRET_HASH"),
	}

	var err error
	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"VALKEY_DB", 0, &cfg.ValkeyDB},
		{"AI_MAX_RETRIES", 2, &cfg.AIMaxRetries},
		{"POSTS_PER_DAY", 25, &cfg.PostsPerDay},
		{"CORPUS_THRESHOLD", 50, &cfg.CorpusThreshold},
		{"CORPUS_FETCH_COUNT", 100, &cfg.CorpusFetchCount},
		{"EXEMPLAR_COUNT", 5, &cfg.ExemplarCount},
		{"TRIGGER_RATE_LIMIT", 10, &cfg.TriggerRateLimit},
	}
	for _, v := range ints {
		if *v.dst, err = envInt(v.key, v.fallback); err != nil {
			return nil, err
		}
	}
	if cfg.ModerationEnabled, err = envBool("MODERATION_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.JobLeaseTTL, err = envDuration("JOB_LEASE_TTL", 2*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Platform {
	case "twitter", "bluesky":
	default:
		return fmt.Errorf("PLATFORM must be twitter or bluesky, got %q", c.Platform)
	}
	switch c.TimelineSource {
	case "platform":
	case "rss":
		if c.TimelineRSSURL == "" {
			return fmt.Errorf("TIMELINE_RSS_URL must be set when TIMELINE_SOURCE=rss")
		}
	default:
		return fmt.Errorf("TIMELINE_SOURCE must be platform or rss, got %q", c.TimelineSource)
	}
	if len(c.GenerationProviders) == 0 {
		return fmt.Errorf("GENERATION_PROVIDERS must name at least one provider")
	}
	if _, _, err := models.ParseClock(c.ContentGenerationTime); err != nil {
		return fmt.Errorf("CONTENT_GENERATION_TIME: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE: %w", err)
	}
	if c.PostsPerDay < 0 {
		return fmt.Errorf("POSTS_PER_DAY must not be negative")
	}

	if c.Env == "production" {
		if c.DBPassword == "changeme" {
			return fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if c.TriggerSecret == "" && c.TriggerSecretHash == "" {
			return fmt.Errorf("TRIGGER_SECRET or TRIGGER_SECRET_HASH must be set in production")
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValkeyEnabled reports whether a Valkey host is configured.
func (c *Config) ValkeyEnabled() bool {
	return c.ValkeyHost != ""
}

// GenerationSpec returns the cron spec of the daily generation run.
// GENERATION_CRON wins over CONTENT_GENERATION_TIME.
func (c *Config) GenerationSpec() string {
	if c.GenerationCron != "" {
		return c.GenerationCron
	}
	hour, minute, err := models.ParseClock(c.ContentGenerationTime)
	if err != nil {
		hour, minute = 9, 0
	}
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// Location returns the scheduler time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AIProviders returns the backend settings for every provider that has an
// API key.
func (c *Config) AIProviders() map[string]ai.ProviderConfig {
	all := map[string]ai.ProviderConfig{
		"openai":  {APIKey: c.OpenAIKey, Model: c.OpenAIModel, BaseURL: c.OpenAIBaseURL},
		"claude":  {APIKey: c.ClaudeKey, Model: c.ClaudeModel, BaseURL: c.ClaudeBaseURL},
		"gemini":  {APIKey: c.GeminiKey, Model: c.GeminiModel, BaseURL: c.GeminiBaseURL},
		"mistral": {APIKey: c.MistralKey, Model: c.MistralModel, BaseURL: c.MistralBaseURL},
		"cohere":  {APIKey: c.CohereKey, Model: c.CohereModel, BaseURL: c.CohereBaseURL},
	}
	out := make(map[string]ai.ProviderConfig, len(all))
	for name, pc := range all {
		if pc.APIKey != "" {
			out[name] = pc
		}
	}
	return out
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// envList splits a comma-separated variable, dropping blanks. Entries are
// lower-cased.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
