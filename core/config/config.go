package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds the bot identity and how updates are received.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds is the getUpdates timeout. Zero means 10.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig is used when RunMode is webhook.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
	// SecretToken is checked against the X-Telegram-Bot-Api-Secret-Token header when set.
	SecretToken string `yaml:"secret_token" envconfig:"TG_SECRET_TOKEN"`
}

// MenuConfig selects where the menu catalog is loaded from.
type MenuConfig struct {
	Source      string `yaml:"source" envconfig:"MENU_SOURCE"`
	ContentPath string `yaml:"content_path" envconfig:"MENU_CONTENT_PATH"`
	// Watch reloads the content file on change; file source only.
	Watch bool `yaml:"watch" envconfig:"MENU_WATCH"`
	// ReloadSchedule is a cron expression for periodic reloads of the file or
	// postgres source, e.g. "*/10 * * * *". Empty disables it.
	ReloadSchedule string `yaml:"reload_schedule" envconfig:"MENU_RELOAD_SCHEDULE"`
}

// LoggingConfig shapes the structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// KeysOrder is a comma separated key list written first, or "default".
	KeysOrder string `yaml:"keys_order" envconfig:"LOG_KEYS_ORDER"`
	// DebugSample throttles high-volume debug lines: "1/50", "50" or "off".
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file" envconfig:"LOG_BOT_FILE"`
	// ErrorsFile receives a copy of every ERROR line.
	ErrorsFile string `yaml:"errors_file" envconfig:"LOG_ERRORS_FILE"`
	// Profile is "prod", "dev" or "debug"; dev and debug default to key=value output.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig throttles each sender to one update per IntervalMS.
// ExcludeUpdates lists update classes that are never throttled.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

const (
	// MenuSourceEmbedded uses the catalog compiled into the binary.
	MenuSourceEmbedded = "embedded"
	// MenuSourceFile loads the catalog from a YAML content file.
	MenuSourceFile = "file"
	// MenuSourcePostgres loads the catalog from the menu tables.
	MenuSourcePostgres = "postgres"
)

// Update classes accepted by RateLimitConfig.ExcludeUpdates.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

// ErrInvalidConfig wraps every validation failure reported by Normalize.
var ErrInvalidConfig = errors.New("invalid config")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Config is the settings tree shared by every deployment of the bot.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Menu      MenuConfig      `yaml:"menu"`
}

// Load reads, overlays and validates the configuration at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode fills dst from the YAML file at path, then overlays environment
// variables named by envconfig tags. dst may embed Config to extend it.
func Decode(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config env overlay: %w", err)
	}
	return nil
}

// Normalize validates cfg and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return invalid("nil config")
	}
	for _, step := range []func() error{
		cfg.normalizeTelegram,
		cfg.normalizeRateLimit,
		cfg.Menu.normalize,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (cfg *Config) normalizeTelegram() error {
	t := &cfg.Telegram
	if t.Token = strings.TrimSpace(t.Token); t.Token == "" {
		return invalid("telegram token is required")
	}
	mode := strings.ToLower(strings.TrimSpace(t.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		if t.LongPollTimeoutSeconds < 0 {
			return invalid("telegram.longpoll_timeout_seconds must be >= 0")
		}
		t.RunMode = RunModeLongpoll
		return nil
	case RunModeWebhook:
		t.RunMode = RunModeWebhook
		return cfg.Webhook.normalize()
	}
	return invalid("invalid telegram.run_mode %q; allowed: webhook, longpoll", t.RunMode)
}

func (w *WebhookConfig) normalize() error {
	w.URL = strings.TrimRight(strings.TrimSpace(w.URL), "/")
	switch {
	case w.URL == "":
		return invalid("webhook.url is required in webhook mode")
	case strings.TrimSpace(w.Listen) == "":
		return invalid("webhook.listen is required in webhook mode")
	case w.Port <= 0:
		return invalid("webhook.port must be > 0 in webhook mode")
	}
	return nil
}

func (cfg *Config) normalizeRateLimit() error {
	kept := cfg.RateLimit.ExcludeUpdates[:0]
	for _, v := range cfg.RateLimit.ExcludeUpdates {
		class := strings.ToLower(strings.TrimSpace(v))
		switch class {
		case "":
			continue
		case UpdateCallback, UpdateMessage, UpdateInlineQuery:
			kept = append(kept, class)
		default:
			return invalid("rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
	}
	cfg.RateLimit.ExcludeUpdates = kept
	return nil
}

func (m *MenuConfig) normalize() error {
	m.ContentPath = strings.TrimSpace(m.ContentPath)
	src := strings.ToLower(strings.TrimSpace(m.Source))
	if src == "" {
		src = MenuSourceEmbedded
		if m.ContentPath != "" {
			src = MenuSourceFile
		}
	}
	switch src {
	case MenuSourceEmbedded, MenuSourcePostgres:
		if m.Watch {
			return invalid("menu.watch requires menu.source 'file', got %q", src)
		}
	case MenuSourceFile:
		if m.ContentPath == "" {
			return invalid("menu.content_path is required when menu.source is 'file'")
		}
	default:
		return invalid("invalid menu.source %q; allowed: embedded, file, postgres", m.Source)
	}
	m.ReloadSchedule = strings.TrimSpace(m.ReloadSchedule)
	if m.ReloadSchedule != "" {
		if src == MenuSourceEmbedded {
			return invalid("menu.reload_schedule has nothing to reload for the embedded source")
		}
		if !gronx.New().IsValid(m.ReloadSchedule) {
			return invalid("invalid menu.reload_schedule %q", m.ReloadSchedule)
		}
	}
	m.Source = src
	return nil
}
