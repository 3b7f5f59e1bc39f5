package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"WeeklyTop/internal/domain"
)

const (
	configPathEnv    = "WEEKLYTOP_CONFIG"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	openAIModelEnv   = "OPENAI_MODEL"
	cronKeyEnv       = "CRON_KEY"
	redisURLEnv      = "REDIS_URL"
	databaseDSNEnv   = "DATABASE_DSN"
	storageDriverEnv = "STORAGE_DRIVER"
	httpAddrEnv      = "HTTP_ADDR"
	logLevelEnv      = "LOG_LEVEL"
)

// Source kinds understood by the scanner registry.
const (
	KindFeed    = "feed"
	KindPage    = "page"
	KindListing = "listing"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// ErrInvalid is returned by Validate for unusable configurations.
var ErrInvalid = errors.New("invalid configuration")

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig drives the trigger/read HTTP endpoints.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CronKey         string        `yaml:"cronKey"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StorageConfig picks the persistence gateway.
type StorageConfig struct {
	Driver   string `yaml:"driver"`
	RedisURL string `yaml:"redisUrl"`
	RedisKey string `yaml:"redisKey"`
	DSN      string `yaml:"dsn"`
}

// FetchConfig tunes outbound scraping.
type FetchConfig struct {
	UserAgent    string        `yaml:"userAgent"`
	Timeout      time.Duration `yaml:"timeout"`
	HostInterval time.Duration `yaml:"hostInterval"`
	Concurrency  int           `yaml:"concurrency"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
}

// RankingConfig bounds the weekly list.
type RankingConfig struct {
	Limit int `yaml:"limit"`
}

// EnrichmentConfig defines how to contact the text-generation API.
type EnrichmentConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"apiKey"`
	Language      string        `yaml:"language"`
	SystemPrompt  string        `yaml:"systemPrompt"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"maxAttempts"`
	InitialDelay  time.Duration `yaml:"initialDelay"`
	MaxRetryDelay time.Duration `yaml:"maxRetryDelay"`
}

// SourceConfig describes a single editorial source with its scanner strategy.
type SourceConfig struct {
	Label   string            `yaml:"label"`
	Kind    string            `yaml:"kind"`
	URL     string            `yaml:"url"`
	Weight  float64           `yaml:"weight"`
	Options map[string]string `yaml:"options"`
}

// Signal returns the scoring identity of the source.
func (s SourceConfig) Signal() domain.SourceSignal {
	return domain.SourceSignal{Label: s.Label, Weight: s.Weight}
}

// Weights maps signal labels to their configured weight.
func (c Config) Weights() map[string]float64 {
	weights := make(map[string]float64, len(c.Sources))
	for _, src := range c.Sources {
		if _, ok := weights[src.Label]; !ok {
			weights[src.Label] = src.Weight
		}
	}
	return weights
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit file path. An empty path skips the file.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		fileCfg, err := ReadFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// ReadFile parses a YAML configuration file without applying defaults.
func ReadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate checks that every source can be scanned and scored.
func (c Config) Validate() error {
	weights := map[string]float64{}
	for i, src := range c.Sources {
		if strings.TrimSpace(src.Label) == "" {
			return fmt.Errorf("%w: source #%d has no label", ErrInvalid, i)
		}
		switch src.Kind {
		case KindFeed, KindPage, KindListing:
		default:
			return fmt.Errorf("%w: source %s has unknown kind %q", ErrInvalid, src.Label, src.Kind)
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: source %s has invalid url %q", ErrInvalid, src.Label, src.URL)
		}
		if src.Weight < 0 {
			return fmt.Errorf("%w: source %s has negative weight", ErrInvalid, src.Label)
		}
		if w, ok := weights[src.Label]; ok && w != src.Weight {
			return fmt.Errorf("%w: label %s configured with weights %v and %v", ErrInvalid, src.Label, w, src.Weight)
		}
		weights[src.Label] = src.Weight
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverRedis, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}

	if c.Ranking.Limit < 1 || c.Ranking.Limit > domain.MaxRanked {
		return fmt.Errorf("%w: ranking limit must be within 1..%d", ErrInvalid, domain.MaxRanked)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.Enrichment.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Enrichment.Model = v
	}

	if v := os.Getenv(cronKeyEnv); v != "" {
		c.Server.CronKey = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Storage.RedisURL = v
		if os.Getenv(storageDriverEnv) == "" {
			c.Storage.Driver = DriverRedis
		}
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.CronKey != "" {
		base.Server.CronKey = override.Server.CronKey
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.RedisURL != "" {
		base.Storage.RedisURL = override.Storage.RedisURL
	}
	if override.Storage.RedisKey != "" {
		base.Storage.RedisKey = override.Storage.RedisKey
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.HostInterval > 0 {
		base.Fetch.HostInterval = override.Fetch.HostInterval
	}
	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.MaxBodyBytes > 0 {
		base.Fetch.MaxBodyBytes = override.Fetch.MaxBodyBytes
	}

	if override.Ranking.Limit > 0 {
		base.Ranking.Limit = override.Ranking.Limit
	}

	if override.Enrichment.Endpoint != "" {
		base.Enrichment.Endpoint = override.Enrichment.Endpoint
	}
	if override.Enrichment.Model != "" {
		base.Enrichment.Model = override.Enrichment.Model
	}
	if override.Enrichment.APIKey != "" {
		base.Enrichment.APIKey = override.Enrichment.APIKey
	}
	if override.Enrichment.Language != "" {
		base.Enrichment.Language = override.Enrichment.Language
	}
	if override.Enrichment.SystemPrompt != "" {
		base.Enrichment.SystemPrompt = override.Enrichment.SystemPrompt
	}
	if override.Enrichment.Timeout > 0 {
		base.Enrichment.Timeout = override.Enrichment.Timeout
	}
	if override.Enrichment.MaxAttempts > 0 {
		base.Enrichment.MaxAttempts = override.Enrichment.MaxAttempts
	}
	if override.Enrichment.InitialDelay > 0 {
		base.Enrichment.InitialDelay = override.Enrichment.InitialDelay
	}
	if override.Enrichment.MaxRetryDelay > 0 {
		base.Enrichment.MaxRetryDelay = override.Enrichment.MaxRetryDelay
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

// Default returns the built-in configuration without reading files or env.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:   DriverMemory,
			RedisKey: "weekly:current",
		},
		Fetch: FetchConfig{
			UserAgent:    "WeeklyTop/1.0 (+album curation bot)",
			Timeout:      20 * time.Second,
			HostInterval: 500 * time.Millisecond,
			Concurrency:  4,
			MaxBodyBytes: 5 << 20,
		},
		Ranking: RankingConfig{Limit: domain.MaxRanked},
		Enrichment: EnrichmentConfig{
			Endpoint:      "https://api.openai.com/v1/chat/completions",
			Model:         "gpt-4o-mini",
			Language:      "English",
			Timeout:       60 * time.Second,
			MaxAttempts:   3,
			InitialDelay:  800 * time.Millisecond,
			MaxRetryDelay: 5 * time.Second,
		},
		Sources: []SourceConfig{
			{
				Label:  "Pitchfork Reviews",
				Kind:   KindFeed,
				URL:    "https://pitchfork.com/feed/feed-album-reviews/rss",
				Weight: 6,
			},
			{
				Label:  "Pitchfork Best New Albums",
				Kind:   KindListing,
				URL:    "https://pitchfork.com/reviews/best/albums/",
				Weight: 9,
				Options: map[string]string{
					"linkSelector": `a[href*="/reviews/albums/"]`,
					"maxPages":     "24",
				},
			},
		},
	}
}
