package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"

	"github.com/hoanghai1803/pulse/internal/adapters"
	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/ingest"
	"github.com/hoanghai1803/pulse/internal/models"
	"github.com/hoanghai1803/pulse/internal/storage"
)

// DefaultPath is the config file used when none is given.
const DefaultPath = "pulse.toml"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Store    StoreConfig    `toml:"store"`
	Feeds    FeedsConfig    `toml:"feeds"`
	Schedule ScheduleConfig `toml:"schedule"`
	Sources  []SourceConfig `toml:"sources"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                   int      `toml:"port"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds"`
	AllowedOrigins         []string `toml:"allowed_origins"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// StoreConfig selects and tunes the record store.
type StoreConfig struct {
	Mode                   string `toml:"mode"`
	DSN                    string `toml:"dsn"`
	SnapshotPath           string `toml:"snapshot_path"`
	CacheSize              int    `toml:"cache_size"`
	CacheTTLSeconds        int    `toml:"cache_ttl_seconds"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

// FeedsConfig holds fetching, parsing and adaptation settings.
type FeedsConfig struct {
	Parser              string `toml:"parser"` // scanner or gofeed
	MaxConcurrent       int    `toml:"max_concurrent"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"`
	RetryAttempts       int    `toml:"retry_attempts"`
	DomainDelayMillis   int    `toml:"domain_delay_ms"`
	WarmupDaysBack      int    `toml:"warmup_days_back"`
	DescriptionLength   int    `toml:"description_length"`
	VideoMaxAgeDays     int    `toml:"video_max_age_days"`
	Publisher           string `toml:"publisher"`
	EnrichBlogs         bool   `toml:"enrich_blogs"`
}

// ScheduleConfig holds one seconds-precision cron spec per family. An
// explicitly empty spec disables scheduled runs of that family.
type ScheduleConfig struct {
	Updates string `toml:"updates"`
	Blogs   string `toml:"blogs"`
	Videos  string `toml:"videos"`
}

// SourceConfig is one [[sources]] entry.
type SourceConfig struct {
	Family     string   `toml:"family"`
	Name       string   `toml:"name"`
	URL        string   `toml:"url"`
	Categories []string `toml:"categories"`
}

// envOverrides are the environment variables that take priority over the
// config file. Empty values leave the file value alone.
type envOverrides struct {
	DataMode     string `env:"DATA_MODE"`
	StoreDSN     string `env:"STORE_DSN"`
	SnapshotPath string `env:"SNAPSHOT_PATH"`
	Port         int    `env:"PORT"`
	LogFormat    string `env:"LOG_FORMAT"`
	WebAppURL    string `env:"WEB_APP_URL"`
}

const defaultConfigContent = `[server]
port = 8080
shutdown_timeout_seconds = 10
allowed_origins = []              # extra CORS origins (or set WEB_APP_URL)

[log]
level = "info"
format = "text"                   # "text" or "json" (or set LOG_FORMAT)

[store]
mode = "mock"                     # "mock", "snapshot" or "live" (or set DATA_MODE)
dsn = "data/pulse.db"             # SQLite file used in live mode (or set STORE_DSN)
snapshot_path = "data/snapshot.json"
cache_size = 256
cache_ttl_seconds = 300
breaker_cooldown_seconds = 30

[feeds]
parser = "scanner"                # "scanner" or "gofeed"
max_concurrent = 5
fetch_timeout_seconds = 30
retry_attempts = 3
domain_delay_ms = 1000
warmup_days_back = 180
description_length = 500
video_max_age_days = 365
publisher = "Microsoft"
enrich_blogs = true

[schedule]
updates = "0 0 */6 * * *"
blogs = "0 0 */12 * * *"
videos = "0 0 */12 * * *"

[[sources]]
family = "updates"
name = "Azure Updates"
url = "https://azurecomcdn.azureedge.net/en-us/updates/feed/"

[[sources]]
family = "blogs"
name = "Azure Blog"
url = "https://azure.microsoft.com/en-us/blog/feed/"
categories = ["Azure", "Microsoft"]

[[sources]]
family = "blogs"
name = "Azure SDK Blog"
url = "https://devblogs.microsoft.com/azure-sdk/feed/"
categories = ["Azure", "SDK", "Development"]

[[sources]]
family = "blogs"
name = "Azure Tech Community"
url = "https://techcommunity.microsoft.com/plugins/custom/microsoft/o365/custom-blog-rss?board=AzureBlog"
categories = ["Azure", "Community"]

[[sources]]
family = "videos"
name = "Microsoft Ignite"
url = "https://www.youtube.com/feeds/videos.xml?channel_id=UCrhJmfAGQ5K81XQ8_od1iTg"
categories = ["Ignite", "Azure", "Cloud", "AI"]

[[sources]]
family = "videos"
name = "Microsoft Build"
url = "https://www.youtube.com/feeds/videos.xml?channel_id=UCrhJmfAGQ5K81XQ8_od1iTg"
categories = ["Build", "Azure", "Developer", "Innovation"]
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return parse(string(data))
}

func parse(content string) (*Config, error) {
	cfg, err := decode(content)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// decode parses content and fills in defaults, without looking at the
// environment.
func decode(content string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "port = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}

	positive := []struct {
		key   string
		value int
	}{
		{"max_concurrent", cfg.Feeds.MaxConcurrent},
		{"fetch_timeout_seconds", cfg.Feeds.FetchTimeoutSeconds},
		{"retry_attempts", cfg.Feeds.RetryAttempts},
		{"warmup_days_back", cfg.Feeds.WarmupDaysBack},
		{"description_length", cfg.Feeds.DescriptionLength},
		{"video_max_age_days", cfg.Feeds.VideoMaxAgeDays},
	}
	for _, p := range positive {
		if md.IsDefined("feeds", p.key) && p.value < 1 {
			return fmt.Errorf("invalid feeds.%s %d: must be >= 1", p.key, p.value)
		}
	}

	if md.IsDefined("feeds", "domain_delay_ms") && cfg.Feeds.DomainDelayMillis < 0 {
		return fmt.Errorf("invalid feeds.domain_delay_ms %d: must be >= 0", cfg.Feeds.DomainDelayMillis)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeoutSeconds <= 0 {
		cfg.Server.ShutdownTimeoutSeconds = 10
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Store.Mode == "" {
		cfg.Store.Mode = string(storage.ModeMock)
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = "data/pulse.db"
	}
	if cfg.Store.CacheSize <= 0 {
		cfg.Store.CacheSize = storage.DefaultCacheSize
	}
	if cfg.Store.CacheTTLSeconds <= 0 {
		cfg.Store.CacheTTLSeconds = int(storage.DefaultCacheTTL / time.Second)
	}
	if cfg.Store.BreakerCooldownSeconds <= 0 {
		cfg.Store.BreakerCooldownSeconds = int(storage.DefaultCooldown / time.Second)
	}

	if cfg.Feeds.Parser == "" {
		cfg.Feeds.Parser = "scanner"
	}
	if cfg.Feeds.MaxConcurrent == 0 {
		cfg.Feeds.MaxConcurrent = ingest.DefaultMaxConcurrent
	}
	if cfg.Feeds.FetchTimeoutSeconds == 0 {
		cfg.Feeds.FetchTimeoutSeconds = 30
	}
	if cfg.Feeds.RetryAttempts == 0 {
		cfg.Feeds.RetryAttempts = 3
	}
	if !md.IsDefined("feeds", "domain_delay_ms") {
		cfg.Feeds.DomainDelayMillis = 1000
	}
	if cfg.Feeds.WarmupDaysBack == 0 {
		cfg.Feeds.WarmupDaysBack = ingest.DefaultWarmupDaysBack
	}
	if cfg.Feeds.DescriptionLength == 0 {
		cfg.Feeds.DescriptionLength = adapters.DefaultDescriptionLength
	}
	if cfg.Feeds.VideoMaxAgeDays == 0 {
		cfg.Feeds.VideoMaxAgeDays = adapters.DefaultVideoMaxAgeDays
	}
	if cfg.Feeds.Publisher == "" {
		cfg.Feeds.Publisher = adapters.DefaultPublisher
	}
	if !md.IsDefined("feeds", "enrich_blogs") {
		cfg.Feeds.EnrichBlogs = true
	}

	// An explicit empty schedule disables the family, so only missing keys
	// get the default.
	schedules := map[string]*string{
		ingest.FamilyUpdates: &cfg.Schedule.Updates,
		ingest.FamilyBlogs:   &cfg.Schedule.Blogs,
		ingest.FamilyVideos:  &cfg.Schedule.Videos,
	}
	for family, spec := range schedules {
		if !md.IsDefined("schedule", family) {
			*spec = ingest.DefaultSchedules[family]
		}
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
func applyEnvOverrides(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(context.Background(), &env); err != nil {
		return err
	}

	if env.DataMode != "" {
		cfg.Store.Mode = env.DataMode
	}
	if env.StoreDSN != "" {
		cfg.Store.DSN = env.StoreDSN
	}
	if env.SnapshotPath != "" {
		cfg.Store.SnapshotPath = env.SnapshotPath
	}
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.WebAppURL != "" && !slices.Contains(cfg.Server.AllowedOrigins, env.WebAppURL) {
		cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, env.WebAppURL)
	}
	return nil
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	if _, err := cfg.LogLevel(); err != nil {
		return err
	}
	switch cfg.Log.Format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("invalid log.format %q: must be \"text\" or \"json\"", cfg.Log.Format)
	}

	mode, err := storage.ParseMode(cfg.Store.Mode)
	if err != nil {
		return fmt.Errorf("invalid store.mode: %w", err)
	}
	cfg.Store.Mode = string(mode)

	switch cfg.Feeds.Parser {
	case "scanner", "gofeed":
		// valid
	default:
		return fmt.Errorf("invalid feeds.parser %q: must be \"scanner\" or \"gofeed\"", cfg.Feeds.Parser)
	}

	families := ingest.FamilyNames()
	for i, src := range cfg.Sources {
		if !slices.Contains(families, src.Family) {
			return fmt.Errorf("invalid sources[%d].family %q: must be one of %s", i, src.Family, strings.Join(families, ", "))
		}
		if strings.TrimSpace(src.Name) == "" || strings.TrimSpace(src.URL) == "" {
			return fmt.Errorf("invalid sources[%d]: name and url are required", i)
		}
	}

	if len(cfg.Sources) == 0 {
		slog.Warn("no feed sources configured: ingestion will not fetch anything")
	}

	return nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// SourcesByFamily groups the configured sources by family name.
func (c *Config) SourcesByFamily() map[string][]models.FeedSource {
	out := make(map[string][]models.FeedSource)
	for _, s := range c.Sources {
		out[s.Family] = append(out[s.Family], models.FeedSource{
			Name:       s.Name,
			FeedURL:    s.URL,
			Categories: s.Categories,
		})
	}
	return out
}

// Schedules returns the cron spec of every family.
func (c *Config) Schedules() map[string]string {
	return map[string]string{
		ingest.FamilyUpdates: c.Schedule.Updates,
		ingest.FamilyBlogs:   c.Schedule.Blogs,
		ingest.FamilyVideos:  c.Schedule.Videos,
	}
}

// AdapterConfig returns the adapter settings.
func (c *Config) AdapterConfig() adapters.Config {
	return adapters.Config{
		DescriptionLength: c.Feeds.DescriptionLength,
		VideoMaxAgeDays:   c.Feeds.VideoMaxAgeDays,
		Publisher:         c.Feeds.Publisher,
	}
}

// FetcherOptions returns the HTTP fetcher settings.
func (c *Config) FetcherOptions() feeds.FetcherOptions {
	delay := time.Duration(c.Feeds.DomainDelayMillis) * time.Millisecond
	if delay == 0 {
		delay = -1 // zero means no pacing
	}
	return feeds.FetcherOptions{
		Timeout:     c.FetchTimeout(),
		Attempts:    c.Feeds.RetryAttempts,
		DomainDelay: delay,
	}
}

// FetchTimeout returns the per-request fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Feeds.FetchTimeoutSeconds) * time.Second
}

// StoreOptions returns the settings for storage.Open.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		Mode:         c.Store.Mode,
		DSN:          c.Store.DSN,
		SnapshotPath: c.Store.SnapshotPath,
		CacheSize:    c.Store.CacheSize,
		CacheTTL:     time.Duration(c.Store.CacheTTLSeconds) * time.Second,
		Cooldown:     time.Duration(c.Store.BreakerCooldownSeconds) * time.Second,
	}
}

// ShutdownTimeout returns how long serve waits for in-flight work on exit.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
