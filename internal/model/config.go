package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the complete CommentRadar configuration.
// Field tags serve both viper (mapstructure) and `config show` (yaml).
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Collection   CollectionConfig   `yaml:"collection" mapstructure:"collection"`
	Filter       FilterConfig       `yaml:"filter" mapstructure:"filter"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Schedule     ScheduleConfig     `yaml:"schedule" mapstructure:"schedule"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Metrics      MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// HTTPConfig controls the shared page transport
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// RetryConfig controls retries of transient fetch failures
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// RateLimitConfig is the per-domain request budget
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls response caching. An empty Dir keeps the cache in memory.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir     string        `yaml:"dir,omitempty" mapstructure:"dir"`
}

// CollectionConfig selects sources and how they are invoked
type CollectionConfig struct {
	Platforms      []string      `yaml:"platforms" mapstructure:"platforms"`
	LimitPerSource int           `yaml:"limit_per_source" mapstructure:"limit_per_source"` // 0 = unlimited
	Pause          time.Duration `yaml:"pause" mapstructure:"pause"`                       // between adapters
	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`           // 1 = sequential
	NitterHosts    []string      `yaml:"nitter_hosts" mapstructure:"nitter_hosts"`
	BlogPageDelay  time.Duration `yaml:"blog_page_delay" mapstructure:"blog_page_delay"`
}

// FilterConfig narrows the collected set. Zero values disable a filter.
type FilterConfig struct {
	StartDate string `yaml:"start_date,omitempty" mapstructure:"start_date"`
	EndDate   string `yaml:"end_date,omitempty" mapstructure:"end_date"`
	Sentiment string `yaml:"sentiment,omitempty" mapstructure:"sentiment"`
	MinLength int    `yaml:"min_length,omitempty" mapstructure:"min_length"`
	MaxLength int    `yaml:"max_length,omitempty" mapstructure:"max_length"`
}

// StoreConfig controls persistence of the accumulated corpus
type StoreConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Overwrite bool   `yaml:"overwrite" mapstructure:"overwrite"`
}

// ScheduleConfig controls the repeated collection loop
type ScheduleConfig struct {
	Interval         time.Duration `yaml:"interval" mapstructure:"interval"`
	AnalyzeSentiment bool          `yaml:"analyze_sentiment" mapstructure:"analyze_sentiment"`
}

// LoggingConfig controls the process logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// LLMConfig configures the optional digest generator
type LLMConfig struct {
	Provider       string        `yaml:"provider,omitempty" mapstructure:"provider"`
	Model          string        `yaml:"model,omitempty" mapstructure:"model"`
	APIKey         string        `yaml:"-" mapstructure:"api_key"`
	BaseURL        string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens      int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxRecords     int           `yaml:"max_records" mapstructure:"max_records"`
	StrictEvidence bool          `yaml:"strict_evidence" mapstructure:"strict_evidence"`
}

// MetricsConfig controls the Prometheus endpoint of the scheduler
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr"`
}

// AllPlatforms is the declaration order of the built-in source adapters.
var AllPlatforms = []string{
	"reddit", "hackernews", "twitter", "github", "stackoverflow",
	"devto", "medium", "youtube", "blog",
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       10 * time.Second,
			UserAgent:     "CommentRadar/0.2 (+https://github.com/ppiankov/commentradar)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Retry: RetryConfig{
			MaxRetries: 2,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   5 * time.Second,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		Collection: CollectionConfig{
			Platforms:   []string{"all"},
			Pause:       time.Second,
			Concurrency: 1,
			NitterHosts: []string{
				"https://nitter.net",
				"https://nitter.privacydev.net",
				"https://nitter.poast.org",
			},
			BlogPageDelay: 2 * time.Second,
		},
		Store: StoreConfig{
			Path: "comments.json",
		},
		Schedule: ScheduleConfig{
			Interval: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			Timeout:        30 * time.Second,
			MaxTokens:      800,
			MaxRecords:     40,
			StrictEvidence: true,
		},
	}
}

// Configuration errors
var (
	ErrNoPlatforms       = errors.New("at least one platform is required")
	ErrUnknownPlatform   = errors.New("unknown platform")
	ErrInvalidLimit      = errors.New("collection.limit_per_source must be non-negative")
	ErrInvalidLength     = errors.New("filter.min_length cannot exceed filter.max_length")
	ErrNegativeLength    = errors.New("filter lengths must be non-negative")
	ErrInvalidDateRange  = errors.New("filter.start_date cannot be after filter.end_date")
	ErrMissingStorePath  = errors.New("store.path is required")
	ErrInvalidInterval   = errors.New("schedule.interval must be positive")
	ErrInvalidLogFormat  = errors.New("logging.format must be text or json")
	ErrInvalidConcurrent = errors.New("collection.concurrency must be at least 1")
)

// Validate reports configuration errors. It never touches the network.
func (c *Config) Validate() error {
	if _, err := c.ResolvePlatforms(); err != nil {
		return err
	}
	if c.Collection.LimitPerSource < 0 {
		return ErrInvalidLimit
	}
	if c.Collection.Concurrency < 1 {
		return ErrInvalidConcurrent
	}
	if c.Filter.MinLength < 0 || c.Filter.MaxLength < 0 {
		return ErrNegativeLength
	}
	if c.Filter.MaxLength > 0 && c.Filter.MinLength > c.Filter.MaxLength {
		return ErrInvalidLength
	}
	if c.Filter.StartDate != "" && c.Filter.EndDate != "" && c.Filter.StartDate > c.Filter.EndDate {
		return ErrInvalidDateRange
	}
	if c.Filter.Sentiment != "" {
		if _, err := ParseSentiment(c.Filter.Sentiment); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return ErrMissingStorePath
	}
	if c.Schedule.Interval <= 0 {
		return ErrInvalidInterval
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// CapCacheTTL keeps cached responses from outliving a schedule interval so
// every cycle queries the sources again. The TTL becomes half the interval
// when it is not already shorter.
func (c *Config) CapCacheTTL(interval time.Duration) {
	if !c.Cache.Enabled || interval <= 0 {
		return
	}
	if limit := interval / 2; c.Cache.TTL <= 0 || c.Cache.TTL > limit {
		c.Cache.TTL = limit
	}
}

// ResolvePlatforms expands "all" and validates the platform tags, keeping
// the built-in declaration order for "all" and the given order otherwise.
func (c *Config) ResolvePlatforms() ([]string, error) {
	if len(c.Collection.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}

	known := make(map[string]bool, len(AllPlatforms))
	for _, p := range AllPlatforms {
		known[p] = true
	}

	var resolved []string
	seen := make(map[string]bool)
	for _, p := range c.Collection.Platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "all" {
			return append([]string(nil), AllPlatforms...), nil
		}
		if !known[p] {
			return nil, fmt.Errorf("%w: %q (known: %s, all)", ErrUnknownPlatform, p, strings.Join(AllPlatforms, ", "))
		}
		if !seen[p] {
			seen[p] = true
			resolved = append(resolved, p)
		}
	}
	return resolved, nil
}
