package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// TelegramBotToken authenticates against the Telegram Bot API. Required.
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	// GeminiAPIKey authenticates against the Gemini API. Required.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" required:"true"`

	// SourceURL is the announcements page that is polled for new notices.
	SourceURL string `envconfig:"NOTICE_SOURCE_URL" default:"https://neet.nta.nic.in/"`

	// DBPath is the SQLite database file. Defaults to data/noticebot.db.
	DBPath string `envconfig:"DB_PATH" default:"data/noticebot.db"`

	// DataDir is where temporary document artifacts are written.
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	// HealthPort is the HTTP port for /health and /metrics. Defaults to 8001.
	HealthPort int `envconfig:"HEALTH_CHECK_PORT" default:"8001"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PollMinSeconds and PollMaxSeconds bound the randomized polling interval.
	PollMinSeconds int `envconfig:"POLL_MIN_SECONDS" default:"300"`
	PollMaxSeconds int `envconfig:"POLL_MAX_SECONDS" default:"480"`

	// CacheTTLMinutes is how long gateway cache snapshots are trusted.
	CacheTTLMinutes int `envconfig:"CACHE_TTL_MINUTES" default:"120"`

	// Optional SMTP settings for operator notifications. Notifications are
	// disabled when SMTP_HOST is unset.
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM"`
	SMTPTo         string `envconfig:"SMTP_TO"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`
}

// Load reads AppConfig from environment variables using envconfig.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.PollMinSeconds <= 0 || c.PollMaxSeconds < c.PollMinSeconds {
		return nil, fmt.Errorf("invalid poll interval band [%d, %d] seconds",
			c.PollMinSeconds, c.PollMaxSeconds)
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TempDir returns the directory for downloaded document artifacts.
func (c *AppConfig) TempDir() string {
	return filepath.Join(c.DataDir, "temp")
}

// PollMin returns the lower bound of the polling interval band.
func (c *AppConfig) PollMin() time.Duration {
	return time.Duration(c.PollMinSeconds) * time.Second
}

// PollMax returns the upper bound of the polling interval band.
func (c *AppConfig) PollMax() time.Duration {
	return time.Duration(c.PollMaxSeconds) * time.Second
}

// CacheTTL returns the gateway snapshot time-to-live.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}
