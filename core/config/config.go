package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// WhatsAppConfig holds WhatsApp Cloud API credentials and endpoint settings.
type WhatsAppConfig struct {
	Token         string `yaml:"token" envconfig:"WHATSAPP_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"PHONE_NUMBER_ID"`
	VerifyToken   string `yaml:"verify_token" envconfig:"VERIFY_TOKEN"`
	APIBaseURL    string `yaml:"api_base_url" envconfig:"WHATSAPP_API_BASE_URL"`
	APIVersion    string `yaml:"api_version" envconfig:"WHATSAPP_API_VERSION"`
}

// ServerConfig specifies the webhook HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen" envconfig:"SERVER_LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
}

// NotifyConfig configures the Telegram side-channel for lead and handoff alerts.
// Notifications are disabled when the token is empty.
type NotifyConfig struct {
	TelegramToken string `yaml:"telegram_token" envconfig:"NOTIFY_TELEGRAM_TOKEN"`
	ChatID        int64  `yaml:"chat_id" envconfig:"NOTIFY_CHAT_ID"`
}

// DealerConfig describes the dealership shared on location requests.
type DealerConfig struct {
	Name      string  `yaml:"name" envconfig:"DEALER_NAME"`
	Address   string  `yaml:"address" envconfig:"DEALER_ADDRESS"`
	Latitude  float64 `yaml:"latitude" envconfig:"DEALER_LATITUDE"`
	Longitude float64 `yaml:"longitude" envconfig:"DEALER_LONGITUDE"`
}

// EngineConfig tunes conversation behaviour.
type EngineConfig struct {
	// TypingDelayMinMS/MaxMS bound the humanized pause before each outbound send.
	TypingDelayMinMS int `yaml:"typing_delay_min_ms" envconfig:"TYPING_DELAY_MIN_MS"`
	TypingDelayMaxMS int `yaml:"typing_delay_max_ms" envconfig:"TYPING_DELAY_MAX_MS"`
	// RetryWindowMinutes is the idle window after which validation retry tiers reset.
	RetryWindowMinutes int `yaml:"retry_window_minutes" envconfig:"RETRY_WINDOW_MINUTES"`
	// Timezone selects the local zone for time-of-day greetings.
	Timezone string `yaml:"timezone" envconfig:"ENGINE_TIMEZONE"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// DatabaseConfig holds connection settings for the conversation store. This
// package stays import-free of the rest of the module; callers hand these
// values to core/database when opening the pool.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Config aggregates the application configuration.
type Config struct {
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Notify   NotifyConfig   `yaml:"notify"`
	Dealer   DealerConfig   `yaml:"dealer"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.WhatsApp.Token) == "" {
		return fmt.Errorf("whatsapp.token is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp.phone_number_id is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.VerifyToken) == "" {
		return fmt.Errorf("whatsapp.verify_token is required")
	}
	if strings.TrimSpace(cfg.WhatsApp.APIBaseURL) == "" {
		cfg.WhatsApp.APIBaseURL = "https://graph.facebook.com"
	}
	cfg.WhatsApp.APIBaseURL = strings.TrimRight(cfg.WhatsApp.APIBaseURL, "/")
	if strings.TrimSpace(cfg.WhatsApp.APIVersion) == "" {
		cfg.WhatsApp.APIVersion = "v21.0"
	}

	if cfg.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = "0.0.0.0"
	}

	if cfg.Notify.TelegramToken != "" && cfg.Notify.ChatID == 0 {
		return fmt.Errorf("notify.chat_id is required when notify.telegram_token is set")
	}

	if cfg.Engine.TypingDelayMinMS < 0 || cfg.Engine.TypingDelayMaxMS < 0 {
		return fmt.Errorf("engine typing delays must be >= 0")
	}
	if cfg.Engine.TypingDelayMinMS == 0 && cfg.Engine.TypingDelayMaxMS == 0 {
		cfg.Engine.TypingDelayMinMS = 1500
		cfg.Engine.TypingDelayMaxMS = 3000
	}
	if cfg.Engine.TypingDelayMaxMS < cfg.Engine.TypingDelayMinMS {
		return fmt.Errorf("engine.typing_delay_max_ms must be >= engine.typing_delay_min_ms")
	}
	if cfg.Engine.RetryWindowMinutes <= 0 {
		cfg.Engine.RetryWindowMinutes = 5
	}
	if strings.TrimSpace(cfg.Engine.Timezone) == "" {
		cfg.Engine.Timezone = "America/Lima"
	}

	if strings.TrimSpace(cfg.Dealer.Name) == "" {
		cfg.Dealer.Name = "Isuzu Cisne"
	}

	return nil
}
