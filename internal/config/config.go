package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderDeepSeek LLMProvider = "deepseek"
	ProviderOpenAI   LLMProvider = "openai"
	ProviderYandex   LLMProvider = "yandex"
)

type StoreBackend string

const (
	BackendYandex StoreBackend = "yandex"
	BackendGDrive StoreBackend = "gdrive"
)

type Config struct {
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"deepseek"`
	DeepSeekAPIKey   string      `env:"DEEPSEEK_API_KEY"`
	LLMBaseURL       string      `env:"LLM_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	LLMModel         string      `env:"LLM_MODEL" envDefault:"deepseek-chat"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Remote store
	StoreBackend       StoreBackend `env:"STORE_BACKEND" envDefault:"yandex"`
	YandexDiskToken    string       `env:"YANDEX_DISK_TOKEN"`
	YandexDiskAPIURL   string       `env:"YANDEX_DISK_API_URL"`
	RootFolder         string       `env:"YANDEX_ROOT_FOLDER" envDefault:"XLog"`
	GDriveClientID     string       `env:"GDRIVE_CLIENT_ID"`
	GDriveClientSecret string       `env:"GDRIVE_CLIENT_SECRET"`
	GDriveRefreshToken string       `env:"GDRIVE_REFRESH_TOKEN"`
	TempDir            string       `env:"XLOG_TEMP_DIR"`
	DetectCharset      bool         `env:"DETECT_CHARSET" envDefault:"true"`

	// Local files
	ProfilesPath  string `env:"PROFILES_PATH" envDefault:"config/profiles.json"`
	StateFilePath string `env:"STATE_FILE_PATH" envDefault:"data/state.json"`

	// Sessions
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// Behaviour
	ContextLimit   int    `env:"CONTEXT_LIMIT" envDefault:"10"`
	Timezone       string `env:"XLOG_TIMEZONE" envDefault:"Local"`
	WarmupSchedule string `env:"WARMUP_SCHEDULE" envDefault:"5 0 * * *"`

	// Logging
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`
	LogOutput   string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/xlog.log"`
}

// New parses the environment and validates the store and provider
// settings every binary needs.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendYandex:
		if c.YandexDiskToken == "" {
			return fmt.Errorf("YANDEX_DISK_TOKEN is required for store backend %q", c.StoreBackend)
		}
	case BackendGDrive:
		if c.GDriveClientID == "" || c.GDriveClientSecret == "" || c.GDriveRefreshToken == "" {
			return fmt.Errorf("GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN are required for store backend %q", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.StoreBackend)
	}
	switch c.LLMProvider {
	case ProviderDeepSeek, ProviderOpenAI, ProviderYandex:
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	if c.RootFolder == "" {
		return fmt.Errorf("YANDEX_ROOT_FOLDER must not be empty")
	}
	return nil
}

// Location resolves the configured time zone used for transcript dates.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid XLOG_TIMEZONE: %w", err)
	}
	return loc, nil
}

// RequireTelegram checks the settings only the bot process needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
