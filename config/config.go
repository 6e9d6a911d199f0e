package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL          string        `yaml:"base_url"`
	Slug             string        `yaml:"slug"`
	SortOrder        string        `yaml:"sort_order"`
	PageSize         int           `yaml:"page_size"`
	MaxPages         int           `yaml:"max_pages"`
	MaxConcurrency   int           `yaml:"max_concurrency"`
	RequestDelay     time.Duration `yaml:"request_delay"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax  time.Duration `yaml:"retry_backoff_max"`
	PageCacheSize    int           `yaml:"page_cache_size"`
	StateFile        string        `yaml:"state_file"`
	CSVFile          string        `yaml:"csv_file"`
	JSONLFile        string        `yaml:"jsonl_file"`
	BatchSize        int           `yaml:"batch_size"`
	BufferSize       int           `yaml:"buffer_size"`
	UserAgent        string        `yaml:"user_agent"`
	RetryFailed      bool          `yaml:"retry_failed"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	Verbose          bool          `yaml:"verbose"`
}

// DefaultConfig returns the settings used against the live consultation.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://internetconsultatie.nl",
		Slug:             "naturalisatietermijn",
		SortOrder:        "datum",
		PageSize:         100,
		MaxPages:         0,
		MaxConcurrency:   5,
		RequestDelay:     100 * time.Millisecond,
		Timeout:          20 * time.Second,
		MaxRetries:       0,
		RetryBackoff:     200 * time.Millisecond,
		RetryBackoffMax:  2 * time.Second,
		PageCacheSize:    4,
		StateFile:        "natur_reacties_seen.json",
		CSVFile:          "natur_reacties.csv",
		JSONLFile:        "natur_reacties.jsonl",
		BatchSize:        64,
		BufferSize:       512,
		UserAgent:        "Mozilla/5.0 (compatible; ResearchBot/1.0; +https://example.org/bot) ConsultationScraper/2025-10-01",
		RetryFailed:      false,
		RespectRobotsTxt: false,
		MetricsAddr:      "",
		Verbose:          false,
	}
}

// ListURL builds the listing URL for a 1-based page number.
func (c *Config) ListURL(page int) string {
	return fmt.Sprintf("%s/%s/reacties/%s/%d/%d", strings.TrimSuffix(c.BaseURL, "/"), c.Slug, c.SortOrder, page, c.PageSize)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if strings.Trim(c.Slug, "/ ") == "" {
		return fmt.Errorf("consultation slug cannot be empty")
	}
	if c.SortOrder != "datum" && c.SortOrder != "naam" {
		return fmt.Errorf("sort order must be datum or naam")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.PageCacheSize <= 0 {
		return fmt.Errorf("page cache size must be positive")
	}
	if c.StateFile == "" {
		return fmt.Errorf("state file cannot be empty")
	}
	if c.CSVFile == "" {
		return fmt.Errorf("csv file cannot be empty")
	}
	if c.JSONLFile == "" {
		return fmt.Errorf("jsonl file cannot be empty")
	}
	if c.CSVFile == c.JSONLFile {
		return fmt.Errorf("csv and jsonl outputs must be different files")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
