package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/risk"
	"trading-analysisv1/internal/strategy"
)

// Sources understood by SOURCE.
const (
	SourceSQLite = "sqlite"
	SourceAngel  = "angel"
	SourceEODHD  = "eodhd"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Data selection
	Source    string `envconfig:"SOURCE" default:"sqlite"`
	Symbol    string `envconfig:"SYMBOL" default:"TSM"`
	StartDate string `envconfig:"START_DATE" default:"1997-10-09"`
	EndDate   string `envconfig:"END_DATE"` // empty means until now

	// Risk stage
	Investment float64 `envconfig:"INVESTMENT" default:"10000"`
	MCPaths    int     `envconfig:"MC_PATHS" default:"1000"`
	MCDays     int     `envconfig:"MC_DAYS" default:"252"`
	MCSeed     uint64  `envconfig:"MC_SEED" default:"42"`
	MCWorkers  int     `envconfig:"MC_WORKERS" default:"0"`

	// Signal thresholds
	RSIStrongBuy  float64 `envconfig:"RSI_STRONG_BUY" default:"30"`
	RSIBuy        float64 `envconfig:"RSI_BUY" default:"40"`
	RSISell       float64 `envconfig:"RSI_SELL" default:"60"`
	RSIStrongSell float64 `envconfig:"RSI_STRONG_SELL" default:"70"`
	VolumeSurge   float64 `envconfig:"VOLUME_SURGE" default:"1.5"`

	// Angel One credentials
	AngelAPIKey     string `envconfig:"ANGEL_API_KEY"`
	AngelClientCode string `envconfig:"ANGEL_CLIENT_CODE"`
	AngelPassword   string `envconfig:"ANGEL_PASSWORD"`
	AngelTOTPSecret string `envconfig:"ANGEL_TOTP_SECRET"`
	AngelExchange   string `envconfig:"ANGEL_EXCHANGE" default:"NSE"`
	AngelRootURL    string `envconfig:"ANGEL_ROOT_URL"`

	// EODHD
	EODHDAPIKey  string `envconfig:"EODHD_API_KEY"`
	EODHDBaseURL string `envconfig:"EODHD_BASE_URL"`

	// Infrastructure
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"data/history.db"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	PublishRedis  bool   `envconfig:"PUBLISH_REDIS" default:"false"`
	MetricsAddr   string `envconfig:"METRICS_ADDR"` // empty disables the server
	WebhookURL    string `envconfig:"WEBHOOK_URL"`  // empty logs alerts only
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	// Telegram alerts, enabled when both are set
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	return &c, nil
}

// Validate checks cross-field rules and the credentials the chosen source needs.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}

	switch c.Source {
	case SourceSQLite:
		require("SQLITE_PATH", c.SQLitePath)
	case SourceAngel:
		require("ANGEL_API_KEY", c.AngelAPIKey)
		require("ANGEL_CLIENT_CODE", c.AngelClientCode)
		require("ANGEL_PASSWORD", c.AngelPassword)
		require("ANGEL_TOTP_SECRET", c.AngelTOTPSecret)
	case SourceEODHD:
		require("EODHD_API_KEY", c.EODHDAPIKey)
	default:
		return fmt.Errorf("config: unknown SOURCE %q (want sqlite, angel or eodhd)", c.Source)
	}
	require("SYMBOL", c.Symbol)
	if c.PublishRedis {
		require("REDIS_ADDR", c.RedisAddr)
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: required env vars not set for source %s: %s", c.Source, strings.Join(missing, ", "))
	}

	from, to, err := c.Range()
	if err != nil {
		return err
	}
	if !to.IsZero() && to.Before(from) {
		return fmt.Errorf("config: END_DATE %s before START_DATE %s", c.EndDate, c.StartDate)
	}
	if c.Investment <= 0 {
		return fmt.Errorf("config: INVESTMENT must be positive, got %v", c.Investment)
	}
	if c.MCPaths < 1 || c.MCDays < 1 {
		return fmt.Errorf("config: MC_PATHS and MC_DAYS must be positive")
	}
	return c.Rules().Validate()
}

// Range parses START_DATE and END_DATE. A zero end means until now.
func (c *Config) Range() (from, to time.Time, err error) {
	from, err = time.Parse(model.DateLayout, c.StartDate)
	if err != nil {
		return from, to, fmt.Errorf("config: START_DATE: %w", err)
	}
	if c.EndDate != "" {
		to, err = time.Parse(model.DateLayout, c.EndDate)
		if err != nil {
			return from, to, fmt.Errorf("config: END_DATE: %w", err)
		}
	}
	return from, to, nil
}

// Rules maps the threshold keys onto strategy.Rules.
func (c *Config) Rules() strategy.Rules {
	return strategy.Rules{
		StrongBuyRSI:  c.RSIStrongBuy,
		BuyRSI:        c.RSIBuy,
		SellRSI:       c.RSISell,
		StrongSellRSI: c.RSIStrongSell,
		VolumeSurge:   c.VolumeSurge,
	}
}

// MonteCarlo maps the MC_* keys onto the simulation config.
func (c *Config) MonteCarlo() risk.MonteCarloConfig {
	return risk.MonteCarloConfig{
		Paths:   c.MCPaths,
		Days:    c.MCDays,
		Seed:    c.MCSeed,
		Workers: c.MCWorkers,
	}
}

// Telegram reports whether Telegram alerts are configured.
func (c *Config) Telegram() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// LogValue keeps secrets out of structured logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source", c.Source),
		slog.String("symbol", c.Symbol),
		slog.String("start", c.StartDate),
		slog.String("end", c.EndDate),
		slog.Float64("investment", c.Investment),
		slog.Int("mc_paths", c.MCPaths),
		slog.Int("mc_days", c.MCDays),
		slog.String("sqlite_path", c.SQLitePath),
		slog.Bool("publish_redis", c.PublishRedis),
		slog.Bool("webhook", c.WebhookURL != ""),
		slog.Bool("telegram", c.Telegram()),
	)
}
