package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the plain environment variables used by
// existing deployments, in addition to the RIVALWATCH_ prefixed form.
var envBindings = map[string]string{
	"llm.api_key":       "DEEPSEEK_API_KEY",
	"llm.base_url":      "DEEPSEEK_BASE_URL",
	"email.username":    "EMAIL_USERNAME",
	"email.password":    "EMAIL_PASSWORD",
	"email.from":        "EMAIL_FROM",
	"email.to":          "EMAIL_TO",
	"email.smtp_server": "SMTP_SERVER",
	"email.smtp_port":   "SMTP_PORT",
}

// Load reads configuration from file, environment, and .env.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("RIVALWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		prefixed := "RIVALWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("rivalwatch")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".rivalwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Email.To = splitRecipients(cfg.Email.To)
	return cfg, nil
}

// splitRecipients flattens comma-separated entries and drops blanks.
func splitRecipients(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, addr := range strings.Split(entry, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scraper.timeout", cfg.Scraper.Timeout)
	v.SetDefault("scraper.max_retries", cfg.Scraper.MaxRetries)
	v.SetDefault("scraper.retry_delay", cfg.Scraper.RetryDelay)
	v.SetDefault("scraper.min_body_size", cfg.Scraper.MinBodySize)
	v.SetDefault("scraper.max_body_size", cfg.Scraper.MaxBodySize)
	v.SetDefault("scraper.max_redirects", cfg.Scraper.MaxRedirects)
	v.SetDefault("scraper.user_agent", cfg.Scraper.UserAgent)
	v.SetDefault("scraper.accept", cfg.Scraper.Accept)
	v.SetDefault("scraper.accept_language", cfg.Scraper.AcceptLanguage)
	v.SetDefault("scraper.sites_file", cfg.Scraper.SitesFile)

	v.SetDefault("browser.enabled", cfg.Browser.Enabled)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.nav_timeout", cfg.Browser.NavTimeout)
	v.SetDefault("browser.settle_time", cfg.Browser.SettleTime)
	v.SetDefault("browser.max_pages", cfg.Browser.MaxPages)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.human_like", cfg.Browser.HumanLike)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)

	v.SetDefault("window.days", cfg.Window.Days)
	v.SetDefault("window.now", cfg.Window.Now)

	v.SetDefault("workers.competitors", cfg.Workers.Competitors)
	v.SetDefault("workers.industry", cfg.Workers.Industry)
	v.SetDefault("workers.phase_timeout", cfg.Workers.PhaseTimeout)

	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.body_chars", cfg.LLM.BodyChars)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.translate", cfg.LLM.Translate)

	v.SetDefault("content.summary_min", cfg.Content.SummaryMin)
	v.SetDefault("content.summary_max", cfg.Content.SummaryMax)
	v.SetDefault("content.title_max", cfg.Content.TitleMax)

	v.SetDefault("email.smtp_server", cfg.Email.SMTPServer)
	v.SetDefault("email.smtp_port", cfg.Email.SMTPPort)
	v.SetDefault("email.username", cfg.Email.Username)
	v.SetDefault("email.password", cfg.Email.Password)
	v.SetDefault("email.from", cfg.Email.From)
	v.SetDefault("email.to", cfg.Email.To)
	v.SetDefault("email.attach", cfg.Email.Attach)

	v.SetDefault("storage.artifacts_dir", cfg.Storage.ArtifactsDir)
	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
}
