package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "IMAGE_MIGRATOR_CONFIG"
	downloadDirEnv    = "IMAGE_MIGRATOR_DOWNLOAD_DIR"
	uploadURLEnv      = "IMAGE_MIGRATOR_UPLOAD_URL"
	logLevelEnv       = "IMAGE_MIGRATOR_LOG_LEVEL"
	ledgerDSNEnv      = "LEDGER_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"

	DefaultInputSeparator = ":"
	DefaultCSVSeparator   = ","
	DefaultTimeout        = 120 * time.Second
	DefaultChunkSize      = 64 * 1024
	DefaultDownloadDir    = "meocloud_images"
	DefaultUploadURL      = "https://8upload.com/url.php"
	DefaultUploadProvider = "8upload"
)

// Config holds high-level settings required across the application.
type Config struct {
	Input         InputConfig        `yaml:"input"`
	Report        ReportConfig       `yaml:"report"`
	HTTP          HTTPConfig         `yaml:"http"`
	Download      DownloadConfig     `yaml:"download"`
	Upload        UploadConfig       `yaml:"upload"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Logging       LoggingConfig      `yaml:"logging"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// InputConfig describes the "<path><sep><url>" input format.
type InputConfig struct {
	Separator string `yaml:"separator" validate:"len=1"`
}

// ReportConfig describes the report file format.
type ReportConfig struct {
	Separator string `yaml:"separator" validate:"len=1"`
}

// HTTPConfig configures the single client shared by all outbound requests.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
	UserAgent string        `yaml:"userAgent"`
}

// DownloadConfig controls the origin fetch stage.
type DownloadConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Dir       string `yaml:"dir" validate:"required"`
	ChunkSize int    `yaml:"chunkSize" validate:"gt=0"`
}

// UploadConfig controls the upload relay stage.
type UploadConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	Provider string `yaml:"provider" validate:"required"`
	URL      string `yaml:"url" validate:"required,url"`
}

// LedgerConfig points at the optional migration ledger database.
type LedgerConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig selects log level and an optional rotating log file.
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase" validate:"omitempty,url"`
}

// DownloadEnabled reports whether the fetch stage runs.
func (c Config) DownloadEnabled() bool {
	return c.Download.Enabled == nil || *c.Download.Enabled
}

// UploadEnabled reports whether the upload stage runs.
func (c Config) UploadEnabled() bool {
	return c.Upload.Enabled == nil || *c.Upload.Enabled
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(downloadDirEnv); v != "" {
		c.Download.Dir = v
	}

	if v := os.Getenv(uploadURLEnv); v != "" {
		c.Upload.URL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(ledgerDSNEnv); v != "" {
		c.Ledger.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Input.Separator != "" {
		base.Input.Separator = override.Input.Separator
	}
	if override.Report.Separator != "" {
		base.Report.Separator = override.Report.Separator
	}

	if override.HTTP.Timeout > 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.UserAgent != "" {
		base.HTTP.UserAgent = override.HTTP.UserAgent
	}

	if override.Download.Enabled != nil {
		base.Download.Enabled = override.Download.Enabled
	}
	if override.Download.Dir != "" {
		base.Download.Dir = override.Download.Dir
	}
	if override.Download.ChunkSize > 0 {
		base.Download.ChunkSize = override.Download.ChunkSize
	}

	if override.Upload.Enabled != nil {
		base.Upload.Enabled = override.Upload.Enabled
	}
	if override.Upload.Provider != "" {
		base.Upload.Provider = override.Upload.Provider
	}
	if override.Upload.URL != "" {
		base.Upload.URL = override.Upload.URL
	}

	if override.Ledger.Driver != "" {
		base.Ledger.Driver = override.Ledger.Driver
	}
	if override.Ledger.DSN != "" {
		base.Ledger.DSN = override.Ledger.DSN
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}
	if override.Logging.MaxSizeMB > 0 {
		base.Logging.MaxSizeMB = override.Logging.MaxSizeMB
	}
	if override.Logging.MaxBackups > 0 {
		base.Logging.MaxBackups = override.Logging.MaxBackups
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.APIBase != "" {
		base.Notifications.Telegram.APIBase = override.Notifications.Telegram.APIBase
	}

	return base
}

// Default returns the compiled-in settings of the migration tool.
func Default() Config {
	return Config{
		Input:  InputConfig{Separator: DefaultInputSeparator},
		Report: ReportConfig{Separator: DefaultCSVSeparator},
		HTTP:   HTTPConfig{Timeout: DefaultTimeout, UserAgent: "ImageMigrator/1.0"},
		Download: DownloadConfig{
			Dir:       DefaultDownloadDir,
			ChunkSize: DefaultChunkSize,
		},
		Upload: UploadConfig{
			Provider: DefaultUploadProvider,
			URL:      DefaultUploadURL,
		},
		Ledger:  LedgerConfig{Driver: "sqlite"},
		Logging: LoggingConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
		},
	}
}
