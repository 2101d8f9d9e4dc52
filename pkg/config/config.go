// Package config provides configuration loading for the briefing pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"briefing-trends/pkg/artifact"
	"briefing-trends/pkg/fetcher"
	"briefing-trends/pkg/httpclient"
	"briefing-trends/pkg/store"
	"briefing-trends/pkg/wordcount"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "briefings.yaml"

// Config represents the complete pipeline configuration
type Config struct {
	// Year is the calendar year summarized and merged.
	Year int `yaml:"year"`
	// DataDir is the root of every artifact.
	DataDir string `yaml:"data_dir"`
	// Terms are the tracked search terms.
	Terms []string `yaml:"terms"`
	// MetricsFile receives Prometheus counters at the end of a run (empty = off).
	MetricsFile string `yaml:"metrics_file"`

	Scrape     ScrapeConfig     `yaml:"scrape"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Counting   CountingConfig   `yaml:"counting"`
	Store      StoreConfig      `yaml:"store"`
	Mirror     MirrorConfig     `yaml:"mirror"`
	Trends     TrendsConfig     `yaml:"trends"`
}

// ScrapeConfig configures the listing crawl
type ScrapeConfig struct {
	// BaseURL is the listing URL without the page parameter.
	BaseURL     string `yaml:"base_url"`
	FirstPage   int    `yaml:"first_page"`
	LastPage    int    `yaml:"last_page"`
	TitlePrefix string `yaml:"title_prefix"`
	// FeedURL adds records from an RSS/Atom feed when set.
	FeedURL string `yaml:"feed_url"`
}

// TranscriptConfig configures transcript extraction
type TranscriptConfig struct {
	// Origin resolves relative transcript links.
	Origin          string `yaml:"origin"`
	ContentSelector string `yaml:"content_selector"`
	Workers         int    `yaml:"workers"`
	// YearOnly restricts extraction to records dated in Year.
	YearOnly bool `yaml:"year_only"`
}

// FetchConfig configures the shared fetcher
type FetchConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	// CacheDir defaults to <data_dir>/press_briefing_cache.
	CacheDir string `yaml:"cache_dir"`
	// RedisURL replaces the disk cache with a shared Redis cache.
	RedisURL string      `yaml:"redis_url"`
	Retry    RetryConfig `yaml:"retry"`
	// ClientProfile is the header profile: browser or plain.
	ClientProfile string `yaml:"client_profile"`
	// UserAgent replaces the profile's User-Agent when set.
	UserAgent string `yaml:"user_agent"`
}

// RetryConfig configures the fetcher's internal retries
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

// CountingConfig configures the tokenizer
type CountingConfig struct {
	// ExtraStopwords are ignored in addition to the English stopwords.
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// StoreConfig selects the record store backend
type StoreConfig struct {
	// Driver is csv, sqlite, postgres or supabase.
	Driver           string     `yaml:"driver"`
	DSN              string     `yaml:"dsn"`
	SupabaseURL      string     `yaml:"supabase_url"`
	SupabaseKey      string     `yaml:"supabase_key"`
	SupabasePassword string     `yaml:"supabase_password"`
	Pool             PoolConfig `yaml:"pool"`
}

// PoolConfig tunes SQL connection pools (zero = database/sql default)
type PoolConfig struct {
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnMaxIdle  time.Duration `yaml:"conn_max_idle"`
	ConnMaxLife  time.Duration `yaml:"conn_max_life"`
}

// MirrorConfig configures the MongoDB transcript mirror
type MirrorConfig struct {
	// URI enables the mirror when set.
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// TrendsConfig configures the trend series
type TrendsConfig struct {
	// SeriesPath defaults to <data_dir>/text/summary/trends.json.
	SeriesPath string `yaml:"series_path"`
	// GraphURL is fetched by "trends import" when no file is given.
	GraphURL string `yaml:"graph_url"`
}

// DefaultTerms are the terms tracked for 2014.
var DefaultTerms = []string{
	"ebola", "isis", "isil", "islamic", "state", "ukraine",
	"crimea", "secret", "service", "syria", "unemployment", "keystone",
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Year:    2014,
		DataDir: "data",
		Terms:   append([]string(nil), DefaultTerms...),
		Scrape: ScrapeConfig{
			BaseURL:     "http://www.whitehouse.gov/briefing-room/press-briefings",
			FirstPage:   0,
			LastPage:    21,
			TitlePrefix: "Press Briefing",
		},
		Transcript: TranscriptConfig{
			Origin:          "http://www.whitehouse.gov",
			ContentSelector: "#content",
			Workers:         1,
		},
		Fetch: FetchConfig{
			RequestsPerMinute: 60,
			Timeout:           30 * time.Second,
			Retry: RetryConfig{
				InitialWait: fetcher.DefaultRetryConfig.InitialWait,
				MaxWait:     fetcher.DefaultRetryConfig.MaxWait,
			},
			ClientProfile: string(httpclient.BrowserClient),
		},
		Counting: CountingConfig{
			ExtraStopwords: append([]string(nil), wordcount.DefaultExtraStopwords...),
		},
		Store: StoreConfig{
			Driver: store.DriverCSV,
		},
		Mirror: MirrorConfig{
			Database:   "briefings",
			Collection: "transcripts",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if c.Year < 1900 || c.Year > 9999 {
		errs = append(errs, fmt.Errorf("year %d is out of range", c.Year))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir is required"))
	}
	if len(c.Terms) == 0 {
		errs = append(errs, fmt.Errorf("terms must not be empty"))
	}
	for _, term := range c.Terms {
		if term == "" || filepath.Base(term) != term {
			errs = append(errs, fmt.Errorf("term %q is not usable as a file name", term))
		}
	}
	if c.Scrape.BaseURL == "" {
		errs = append(errs, fmt.Errorf("scrape.base_url is required"))
	}
	if c.Scrape.FirstPage < 0 || c.Scrape.LastPage < c.Scrape.FirstPage {
		errs = append(errs, fmt.Errorf("scrape page range %d..%d is invalid", c.Scrape.FirstPage, c.Scrape.LastPage))
	}
	if c.Transcript.Origin == "" {
		errs = append(errs, fmt.Errorf("transcript.origin is required"))
	}
	if c.Transcript.Workers < 1 {
		errs = append(errs, fmt.Errorf("transcript.workers must be at least 1"))
	}
	if c.Fetch.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("fetch.requests_per_minute must not be negative"))
	}
	if c.Fetch.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch.retry.max_retries must not be negative"))
	}
	switch httpclient.ClientType(c.Fetch.ClientProfile) {
	case "", httpclient.BrowserClient, httpclient.PlainClient:
	default:
		errs = append(errs, fmt.Errorf("fetch.client_profile %q is not browser or plain", c.Fetch.ClientProfile))
	}
	switch c.Store.Driver {
	case store.DriverCSV, store.DriverSQLite, store.DriverPostgres, store.DriverSupabase:
	default:
		errs = append(errs, fmt.Errorf("store.driver: %w: %q", store.ErrUnknownDriver, c.Store.Driver))
	}
	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Year != 0 {
		c.Year = other.Year
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if len(other.Terms) > 0 {
		c.Terms = other.Terms
	}
	if other.MetricsFile != "" {
		c.MetricsFile = other.MetricsFile
	}

	// Scrape
	if other.Scrape.BaseURL != "" {
		c.Scrape.BaseURL = other.Scrape.BaseURL
	}
	if other.Scrape.FirstPage != 0 {
		c.Scrape.FirstPage = other.Scrape.FirstPage
	}
	if other.Scrape.LastPage != 0 {
		c.Scrape.LastPage = other.Scrape.LastPage
	}
	if other.Scrape.TitlePrefix != "" {
		c.Scrape.TitlePrefix = other.Scrape.TitlePrefix
	}
	if other.Scrape.FeedURL != "" {
		c.Scrape.FeedURL = other.Scrape.FeedURL
	}

	// Transcript
	if other.Transcript.Origin != "" {
		c.Transcript.Origin = other.Transcript.Origin
	}
	if other.Transcript.ContentSelector != "" {
		c.Transcript.ContentSelector = other.Transcript.ContentSelector
	}
	if other.Transcript.Workers != 0 {
		c.Transcript.Workers = other.Transcript.Workers
	}
	if other.Transcript.YearOnly {
		c.Transcript.YearOnly = true
	}

	// Fetch
	if other.Fetch.RequestsPerMinute != 0 {
		c.Fetch.RequestsPerMinute = other.Fetch.RequestsPerMinute
	}
	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.CacheDir != "" {
		c.Fetch.CacheDir = other.Fetch.CacheDir
	}
	if other.Fetch.RedisURL != "" {
		c.Fetch.RedisURL = other.Fetch.RedisURL
	}
	if other.Fetch.Retry.MaxRetries != 0 {
		c.Fetch.Retry.MaxRetries = other.Fetch.Retry.MaxRetries
	}
	if other.Fetch.Retry.InitialWait != 0 {
		c.Fetch.Retry.InitialWait = other.Fetch.Retry.InitialWait
	}
	if other.Fetch.Retry.MaxWait != 0 {
		c.Fetch.Retry.MaxWait = other.Fetch.Retry.MaxWait
	}
	if other.Fetch.ClientProfile != "" {
		c.Fetch.ClientProfile = other.Fetch.ClientProfile
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}

	// Counting
	if len(other.Counting.ExtraStopwords) > 0 {
		c.Counting.ExtraStopwords = other.Counting.ExtraStopwords
	}

	// Store
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.DSN != "" {
		c.Store.DSN = other.Store.DSN
	}
	if other.Store.SupabaseURL != "" {
		c.Store.SupabaseURL = other.Store.SupabaseURL
	}
	if other.Store.SupabaseKey != "" {
		c.Store.SupabaseKey = other.Store.SupabaseKey
	}
	if other.Store.SupabasePassword != "" {
		c.Store.SupabasePassword = other.Store.SupabasePassword
	}
	if other.Store.Pool != (PoolConfig{}) {
		c.Store.Pool = other.Store.Pool
	}

	// Mirror
	if other.Mirror.URI != "" {
		c.Mirror.URI = other.Mirror.URI
	}
	if other.Mirror.Database != "" {
		c.Mirror.Database = other.Mirror.Database
	}
	if other.Mirror.Collection != "" {
		c.Mirror.Collection = other.Mirror.Collection
	}

	// Trends
	if other.Trends.SeriesPath != "" {
		c.Trends.SeriesPath = other.Trends.SeriesPath
	}
	if other.Trends.GraphURL != "" {
		c.Trends.GraphURL = other.Trends.GraphURL
	}
}

// Environment overrides.
const (
	EnvDataDir          = "BRIEFINGS_DATA_DIR"
	EnvRedisURL         = "BRIEFINGS_REDIS_URL"
	EnvStoreDSN         = "BRIEFINGS_STORE_DSN"
	EnvMongoURI         = "BRIEFINGS_MONGO_URI"
	EnvYear             = "BRIEFINGS_YEAR"
	EnvSupabaseURL      = "SUPABASE_URL"
	EnvSupabaseKey      = "SUPABASE_KEY"
	EnvSupabasePassword = "SUPABASE_DB_PASSWORD"
)

// ApplyEnv overrides fields from environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvDataDir, &c.DataDir)
	set(EnvRedisURL, &c.Fetch.RedisURL)
	set(EnvStoreDSN, &c.Store.DSN)
	set(EnvMongoURI, &c.Mirror.URI)
	set(EnvSupabaseURL, &c.Store.SupabaseURL)
	set(EnvSupabaseKey, &c.Store.SupabaseKey)
	set(EnvSupabasePassword, &c.Store.SupabasePassword)

	if v, ok := lookup(EnvYear); ok && v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvYear, v, err)
		}
		c.Year = year
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (DefaultConfigFile when empty, skipped if absent), then .env and the
// process environment. The result is not validated; callers apply flag
// overrides first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := DefaultConfig()

	if path == "" {
		path = DefaultConfigFile
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// Layout returns the artifact layout under DataDir.
func (c *Config) Layout() artifact.Layout {
	return artifact.Layout{DataDir: c.DataDir}
}

// CacheDir returns the disk cache directory.
func (c *Config) CacheDir() string {
	if c.Fetch.CacheDir != "" {
		return c.Fetch.CacheDir
	}
	return filepath.Join(c.DataDir, "press_briefing_cache")
}

// SeriesPath returns the trend series artifact path.
func (c *Config) SeriesPath() string {
	if c.Trends.SeriesPath != "" {
		return c.Trends.SeriesPath
	}
	return filepath.Join(c.Layout().SummaryDir(), "trends.json")
}

// RetryPolicy returns fetcher.DefaultRetryConfig with the configured retry
// count and any configured waits.
func (c *Config) RetryPolicy() fetcher.RetryConfig {
	rc := fetcher.DefaultRetryConfig
	rc.MaxRetries = c.Fetch.Retry.MaxRetries
	if c.Fetch.Retry.InitialWait > 0 {
		rc.InitialWait = c.Fetch.Retry.InitialWait
	}
	if c.Fetch.Retry.MaxWait > 0 {
		rc.MaxWait = c.Fetch.Retry.MaxWait
	}
	return rc
}

// HTTPClient builds the fetcher transport from the client profile, timeout
// and User-Agent override.
func (c *Config) HTTPClient() *httpclient.HTTPClient {
	profile := httpclient.ClientType(c.Fetch.ClientProfile)
	if profile == "" {
		profile = httpclient.BrowserClient
	}
	client := httpclient.NewClientWithTimeout(profile, c.Fetch.Timeout)
	if c.Fetch.UserAgent != "" {
		client.SetUserAgent(c.Fetch.UserAgent)
	}
	return client
}

// StoreConfig converts the store settings for store.Open.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:           c.Store.Driver,
		CSVPath:          c.Layout().RecordsPath(),
		DSN:              c.Store.DSN,
		SupabaseURL:      c.Store.SupabaseURL,
		SupabaseKey:      c.Store.SupabaseKey,
		SupabasePassword: c.Store.SupabasePassword,
		Pool: store.PoolConfig{
			MaxOpenConns: c.Store.Pool.MaxOpenConns,
			MaxIdleConns: c.Store.Pool.MaxIdleConns,
			ConnMaxIdle:  c.Store.Pool.ConnMaxIdle,
			ConnMaxLife:  c.Store.Pool.ConnMaxLife,
		},
	}
}
