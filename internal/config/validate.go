package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scrape.MaxThreads < 0 {
		return fmt.Errorf("scrape.max_threads must be >= 0, got %d", cfg.Scrape.MaxThreads)
	}
	if cfg.Scrape.MaxNotebooks < 0 {
		return fmt.Errorf("scrape.max_notebooks must be >= 0, got %d", cfg.Scrape.MaxNotebooks)
	}
	if cfg.Scrape.MaxPosts < 0 {
		return fmt.Errorf("scrape.max_posts must be >= 0, got %d", cfg.Scrape.MaxPosts)
	}
	if cfg.Scrape.ItemDelay < 0 {
		return fmt.Errorf("scrape.item_delay must be >= 0")
	}
	if _, err := url.Parse(cfg.Scrape.BaseURL); err != nil {
		return fmt.Errorf("invalid scrape.base_url %q: %w", cfg.Scrape.BaseURL, err)
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if cfg.Browser.SettleDelay < 0 {
		return fmt.Errorf("browser.settle_delay must be >= 0")
	}

	if cfg.API.Enabled {
		if cfg.API.PageSize < 1 {
			return fmt.Errorf("api.page_size must be >= 1, got %d", cfg.API.PageSize)
		}
		if _, err := url.Parse(cfg.API.BaseURL); err != nil {
			return fmt.Errorf("invalid api.base_url %q: %w", cfg.API.BaseURL, err)
		}
	}

	validFormats := map[string]bool{
		"json": true, "markdown": true, "csv": true,
	}
	for _, f := range cfg.Storage.Formats {
		if !validFormats[f] {
			return fmt.Errorf("storage format %q is not supported (valid: json, markdown, csv)", f)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a scrape input.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
