package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for RivalWatch.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Window  WindowConfig  `mapstructure:"window"  yaml:"window"`
	Workers WorkersConfig `mapstructure:"workers" yaml:"workers"`
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Content ContentConfig `mapstructure:"content" yaml:"content"`
	Email   EmailConfig   `mapstructure:"email"   yaml:"email"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ScraperConfig controls the plain HTTP tier.
type ScraperConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"         yaml:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"     yaml:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"     yaml:"retry_delay"`
	MinBodySize    int           `mapstructure:"min_body_size"   yaml:"min_body_size"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
	MaxRedirects   int           `mapstructure:"max_redirects"   yaml:"max_redirects"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	Accept         string        `mapstructure:"accept"          yaml:"accept"`
	AcceptLanguage string        `mapstructure:"accept_language" yaml:"accept_language"`
	SitesFile      string        `mapstructure:"sites_file"      yaml:"sites_file"`
}

// BrowserConfig controls the headless and stealth tiers.
type BrowserConfig struct {
	Enabled     bool          `mapstructure:"enabled"      yaml:"enabled"`
	Bin         string        `mapstructure:"bin"          yaml:"bin"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"  yaml:"nav_timeout"`
	SettleTime  time.Duration `mapstructure:"settle_time"  yaml:"settle_time"`
	MaxPages    int           `mapstructure:"max_pages"    yaml:"max_pages"`
	Stealth     bool          `mapstructure:"stealth"      yaml:"stealth"`
	HumanLike   bool          `mapstructure:"human_like"   yaml:"human_like"`
	UserDataDir string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// WindowConfig controls the reporting date window.
type WindowConfig struct {
	Days int `mapstructure:"days" yaml:"days"`
	// Now overrides the window end (YYYY-MM-DD). Empty means wall clock.
	Now string `mapstructure:"now"  yaml:"now"`
}

// WorkersConfig controls per-phase concurrency.
type WorkersConfig struct {
	Competitors  int           `mapstructure:"competitors"   yaml:"competitors"`
	Industry     int           `mapstructure:"industry"      yaml:"industry"`
	PhaseTimeout time.Duration `mapstructure:"phase_timeout" yaml:"phase_timeout"`
}

// LLMConfig controls the OpenAI-compatible summarization backend.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"     yaml:"api_key"`
	BaseURL     string        `mapstructure:"base_url"    yaml:"base_url"`
	Model       string        `mapstructure:"model"       yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"  yaml:"max_tokens"`
	BodyChars   int           `mapstructure:"body_chars"  yaml:"body_chars"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	Translate   bool          `mapstructure:"translate"   yaml:"translate"`
}

// Enabled reports whether summarization can run.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// ContentConfig bounds summary and title lengths.
type ContentConfig struct {
	SummaryMin int `mapstructure:"summary_min" yaml:"summary_min"`
	SummaryMax int `mapstructure:"summary_max" yaml:"summary_max"`
	TitleMax   int `mapstructure:"title_max"   yaml:"title_max"`
}

// EmailConfig controls SMTP delivery.
type EmailConfig struct {
	SMTPServer string   `mapstructure:"smtp_server" yaml:"smtp_server"`
	SMTPPort   int      `mapstructure:"smtp_port"   yaml:"smtp_port"`
	Username   string   `mapstructure:"username"    yaml:"username"`
	Password   string   `mapstructure:"password"    yaml:"password"`
	From       string   `mapstructure:"from"        yaml:"from"`
	To         []string `mapstructure:"to"          yaml:"to"`
	Attach     bool     `mapstructure:"attach"      yaml:"attach"`
}

// Enabled reports whether SMTP credentials are present.
func (c EmailConfig) Enabled() bool {
	return c.Username != "" && c.Password != ""
}

// StorageConfig controls artifact and report output.
type StorageConfig struct {
	ArtifactsDir string      `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	OutputDir    string      `mapstructure:"output_dir"    yaml:"output_dir"`
	Mongo        MongoConfig `mapstructure:"mongo"         yaml:"mongo"`
}

// MongoConfig enables an optional MongoDB mirror of the artifacts.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`
	Format     string `mapstructure:"format"       yaml:"format"`
	Output     string `mapstructure:"output"       yaml:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryDelay:     2 * time.Second,
			MinBodySize:    500,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
			MaxRedirects:   10,
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			AcceptLanguage: "en-US,en;q=0.9",
		},
		Browser: BrowserConfig{
			Enabled:    true,
			NavTimeout: 60 * time.Second,
			SettleTime: 3 * time.Second,
			MaxPages:   3,
			Stealth:    true,
			HumanLike:  true,
		},
		Window: WindowConfig{
			Days: 7,
		},
		Workers: WorkersConfig{
			Competitors:  5,
			Industry:     2,
			PhaseTimeout: 480 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Temperature: 0.3,
			MaxTokens:   300,
			BodyChars:   3000,
			Timeout:     60 * time.Second,
			Translate:   true,
		},
		Content: ContentConfig{
			SummaryMin: 80,
			SummaryMax: 100,
			TitleMax:   30,
		},
		Email: EmailConfig{
			SMTPServer: "smtp.gmail.com",
			SMTPPort:   587,
		},
		Storage: StorageConfig{
			ArtifactsDir: "artifacts",
			OutputDir:    "output",
			Mongo: MongoConfig{
				Database:   "rivalwatch",
				Collection: "items",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  20,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}
