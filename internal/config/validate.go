package config

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper.timeout must be > 0")
	}
	if cfg.Scraper.MaxRetries < 1 {
		return fmt.Errorf("scraper.max_retries must be >= 1, got %d", cfg.Scraper.MaxRetries)
	}
	if cfg.Scraper.RetryDelay < 0 {
		return fmt.Errorf("scraper.retry_delay must be >= 0")
	}
	if cfg.Scraper.MinBodySize < 0 {
		return fmt.Errorf("scraper.min_body_size must be >= 0, got %d", cfg.Scraper.MinBodySize)
	}
	if cfg.Scraper.MaxBodySize <= 0 {
		return fmt.Errorf("scraper.max_body_size must be > 0")
	}

	if cfg.Browser.Enabled && cfg.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser.nav_timeout must be > 0")
	}
	if cfg.Browser.Enabled && cfg.Browser.MaxPages < 1 {
		return fmt.Errorf("browser.max_pages must be >= 1, got %d", cfg.Browser.MaxPages)
	}

	if cfg.Window.Days < 1 {
		return fmt.Errorf("window.days must be >= 1, got %d", cfg.Window.Days)
	}
	if cfg.Window.Now != "" {
		if _, err := time.Parse("2006-01-02", cfg.Window.Now); err != nil {
			return fmt.Errorf("window.now must be YYYY-MM-DD, got %q", cfg.Window.Now)
		}
	}

	if cfg.Workers.Competitors < 1 || cfg.Workers.Competitors > 16 {
		return fmt.Errorf("workers.competitors must be 1-16, got %d", cfg.Workers.Competitors)
	}
	if cfg.Workers.Industry < 1 || cfg.Workers.Industry > 16 {
		return fmt.Errorf("workers.industry must be 1-16, got %d", cfg.Workers.Industry)
	}
	if cfg.Workers.PhaseTimeout <= 0 {
		return fmt.Errorf("workers.phase_timeout must be > 0")
	}

	if cfg.LLM.BaseURL != "" {
		if err := ValidateURL(cfg.LLM.BaseURL); err != nil {
			return fmt.Errorf("llm.base_url: %w", err)
		}
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be 0-2, got %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.BodyChars < 1 {
		return fmt.Errorf("llm.body_chars must be >= 1, got %d", cfg.LLM.BodyChars)
	}

	if cfg.Content.SummaryMin < 1 {
		return fmt.Errorf("content.summary_min must be >= 1, got %d", cfg.Content.SummaryMin)
	}
	if cfg.Content.SummaryMax < cfg.Content.SummaryMin {
		return fmt.Errorf("content.summary_max must be >= summary_min (%d), got %d",
			cfg.Content.SummaryMin, cfg.Content.SummaryMax)
	}

	if cfg.Email.Enabled() {
		if cfg.Email.SMTPPort < 1 || cfg.Email.SMTPPort > 65535 {
			return fmt.Errorf("email.smtp_port must be 1-65535, got %d", cfg.Email.SMTPPort)
		}
		if cfg.Email.SMTPServer == "" {
			return fmt.Errorf("email.smtp_server must be set when credentials are present")
		}
	}

	if cfg.Storage.ArtifactsDir == "" {
		return fmt.Errorf("storage.artifacts_dir must be set")
	}
	if cfg.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must be set")
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

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
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
