// Package config loads candlewatch settings from an optional .env file, an
// optional YAML file and environment variables, in that order of precedence
// (env wins).
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"candlewatch/internal/barwindow"
	"candlewatch/internal/indicator"
	"candlewatch/internal/momentum"
	"candlewatch/internal/session"
)

// Config holds all application configuration.
type Config struct {
	Symbol   string `yaml:"symbol"`
	LogLevel string `yaml:"log_level"`

	Window struct {
		Capacity    int    `yaml:"capacity"`
		OnDuplicate string `yaml:"on_duplicate"` // reject | replace
	} `yaml:"window"`

	Indicators indicator.Config `yaml:"indicators"`
	Momentum   momentum.Config  `yaml:"momentum"`

	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`

	Storage struct {
		SQLitePath    string `yaml:"sqlite_path"`
		RedisAddr     string `yaml:"redis_addr"` // empty disables Redis
		RedisPassword string `yaml:"redis_password"`
		StreamMaxLen  int64  `yaml:"stream_max_len"`
	} `yaml:"storage"`

	HTTP struct {
		MetricsAddr string `yaml:"metrics_addr"`
		GatewayAddr string `yaml:"gateway_addr"`
		JWTSecret   string `yaml:"jwt_secret"` // empty disables gateway auth
	} `yaml:"http"`

	Notify struct {
		Telegram struct {
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
		} `yaml:"telegram"`
		WebhookURL  string `yaml:"webhook_url"`
		MinStrength int    `yaml:"min_strength"`
	} `yaml:"notify"`
}

const (
	DefaultSymbol         = "AAPL"
	DefaultRefreshCron    = "@every 60s"
	DefaultWindowCapacity = 500
	DefaultStreamMaxLen   = 10000
)

// Load reads the optional .env file at envPath and the optional YAML file at
// path, applies environment overrides and fills defaults. Either path may be
// empty. Missing files are not an error.
func Load(path, envPath string) (*Config, error) {
	if envPath != "" {
		// Already-set variables take precedence over the file.
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Symbol, "CANDLEWATCH_SYMBOL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Schedule.RefreshCron, "REFRESH_CRON")
	setString(&c.Storage.SQLitePath, "SQLITE_PATH")
	setString(&c.Storage.RedisAddr, "REDIS_ADDR")
	setString(&c.Storage.RedisPassword, "REDIS_PASSWORD")
	setString(&c.HTTP.MetricsAddr, "METRICS_ADDR")
	setString(&c.HTTP.GatewayAddr, "GATEWAY_ADDR")
	setString(&c.HTTP.JWTSecret, "GATEWAY_JWT_SECRET")
	setString(&c.Notify.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Notify.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Notify.WebhookURL, "WEBHOOK_URL")
	setString(&c.Window.OnDuplicate, "WINDOW_ON_DUPLICATE")
	setInt(&c.Window.Capacity, "WINDOW_CAPACITY")
	setInt(&c.Notify.MinStrength, "NOTIFY_MIN_STRENGTH")
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = DefaultSymbol
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Window.Capacity == 0 {
		c.Window.Capacity = DefaultWindowCapacity
	}
	if c.Window.OnDuplicate == "" {
		c.Window.OnDuplicate = barwindow.RejectDuplicate.String()
	}
	if c.Indicators == (indicator.Config{}) {
		c.Indicators = indicator.DefaultConfig()
	}
	if c.Momentum.Capacity == 0 {
		c.Momentum.Capacity = momentum.DefaultCapacity
	}
	if c.Momentum.Lookback == 0 {
		c.Momentum.Lookback = momentum.DefaultLookback
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = DefaultRefreshCron
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/candlewatch.db"
	}
	if c.Storage.StreamMaxLen == 0 {
		c.Storage.StreamMaxLen = DefaultStreamMaxLen
	}
	if c.HTTP.MetricsAddr == "" {
		c.HTTP.MetricsAddr = ":9090"
	}
	if c.HTTP.GatewayAddr == "" {
		c.HTTP.GatewayAddr = ":8080"
	}
}

// Validate checks that the loaded settings are usable.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return errors.New("symbol is required")
	}
	if c.Window.Capacity < 0 {
		return fmt.Errorf("window.capacity must not be negative, got %d", c.Window.Capacity)
	}
	if _, ok := barwindow.ParseDuplicatePolicy(c.Window.OnDuplicate); !ok {
		return fmt.Errorf("window.on_duplicate must be reject or replace, got %q", c.Window.OnDuplicate)
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if c.Momentum.Capacity < 2 {
		return fmt.Errorf("momentum.capacity must be at least 2, got %d", c.Momentum.Capacity)
	}
	if c.Momentum.Lookback < 1 || c.Momentum.Lookback >= c.Momentum.Capacity {
		return fmt.Errorf("momentum.lookback must be in [1, capacity), got %d", c.Momentum.Lookback)
	}
	if _, err := cron.ParseStandard(c.Schedule.RefreshCron); err != nil {
		return fmt.Errorf("schedule.refresh_cron: %w", err)
	}
	if (c.Notify.Telegram.BotToken == "") != (c.Notify.Telegram.ChatID == "") {
		return errors.New("notify.telegram needs both bot_token and chat_id")
	}
	if c.Notify.MinStrength < 0 || c.Notify.MinStrength > 100 {
		return fmt.Errorf("notify.min_strength must be in [0,100], got %d", c.Notify.MinStrength)
	}
	return nil
}

// SessionConfig returns the core settings for one instrument session.
// Call after Validate.
func (c *Config) SessionConfig() session.Config {
	policy, _ := barwindow.ParseDuplicatePolicy(c.Window.OnDuplicate)
	return session.Config{
		Symbol: c.Symbol,
		Window: barwindow.Config{
			Capacity:    c.Window.Capacity,
			OnDuplicate: policy,
		},
		Indicators: c.Indicators,
		Momentum:   c.Momentum,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] ignoring invalid %s=%q", key, v)
		return
	}
	*dst = n
}
