// Package config defines the top-level configuration for polyarb and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYARB_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Trading    TradingConfig    `toml:"trading"`
	Scan       ScanConfig       `toml:"scan"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the public API endpoints.
type PolymarketConfig struct {
	ClobHost    string   `toml:"clob_host"`
	GammaHost   string   `toml:"gamma_host"`
	HTTPTimeout duration `toml:"http_timeout"`
	// RateLimit caps outbound requests per second across every process
	// sharing the Redis instance. 0 disables it; requires redis.enabled.
	RateLimit int `toml:"rate_limit"`
}

// TradingConfig sizes the paper bankroll and the detector thresholds.
type TradingConfig struct {
	Bankroll            float64 `toml:"bankroll"`
	MaxPositionFraction float64 `toml:"max_position_fraction"`
	MinArbitrageSpread  float64 `toml:"min_arbitrage_spread"`
}

// MaxPositionUSD is the largest notional committed to one opportunity.
func (t TradingConfig) MaxPositionUSD() float64 {
	return t.Bankroll * t.MaxPositionFraction
}

// ScanConfig controls the scan loop.
type ScanConfig struct {
	Interval        duration `toml:"interval"`
	MinMarketVolume float64  `toml:"min_market_volume"`
	TopN            int      `toml:"top_n"`
	PageSize        int      `toml:"page_size"`
	PageDelay       duration `toml:"page_delay"`
	EnrichDelay     duration `toml:"enrich_delay"`
	// Cooldown skips re-executing a market traded less than this long ago.
	// 0 executes every cycle.
	Cooldown duration `toml:"cooldown"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	MarketTTL    duration `toml:"market_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ServerConfig holds the status API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"` // requests per second per client, needs redis
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so it can be decoded from a TOML string like
// "5s" or "100ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:    "https://clob.polymarket.com",
			GammaHost:   "https://gamma-api.polymarket.com",
			HTTPTimeout: duration{30 * time.Second},
		},
		Trading: TradingConfig{
			Bankroll:            1000,
			MaxPositionFraction: 0.05,
			MinArbitrageSpread:  0.02,
		},
		Scan: ScanConfig{
			Interval:        duration{5 * time.Second},
			MinMarketVolume: 10000,
			TopN:            5,
			PageSize:        100,
			PageDelay:       duration{100 * time.Millisecond},
			EnrichDelay:     duration{50 * time.Millisecond},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "polyarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			MarketTTL:    duration{5 * time.Minute},
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "polyarb",
			UseSSL:         true,
			ForcePathStyle: true,
			Prefix:         "sessions",
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Notify: NotifyConfig{
			Events: []string{"arbitrage_executed", "session_summary"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"paper": true,
	"scan":  true,
	"live":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration and returns a single error listing every
// problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: paper, scan, live)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.HTTPTimeout.Duration <= 0 {
		errs = append(errs, "polymarket: http_timeout must be > 0")
	}
	if c.Polymarket.RateLimit < 0 {
		errs = append(errs, "polymarket: rate_limit must be >= 0")
	}
	if c.Polymarket.RateLimit > 0 && !c.Redis.Enabled {
		errs = append(errs, "polymarket: rate_limit requires redis.enabled")
	}

	if c.Trading.Bankroll < 0 {
		errs = append(errs, "trading: bankroll must be >= 0")
	}
	if c.Trading.MaxPositionFraction <= 0 || c.Trading.MaxPositionFraction > 1 {
		errs = append(errs, fmt.Sprintf("trading: max_position_fraction must be in (0, 1], got %g", c.Trading.MaxPositionFraction))
	}
	if c.Trading.MinArbitrageSpread < 0 {
		errs = append(errs, "trading: min_arbitrage_spread must be >= 0")
	}

	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0")
	}
	if c.Scan.MinMarketVolume < 0 {
		errs = append(errs, "scan: min_market_volume must be >= 0")
	}
	if c.Scan.TopN < 1 {
		errs = append(errs, "scan: top_n must be >= 1")
	}
	if c.Scan.PageSize < 1 {
		errs = append(errs, "scan: page_size must be >= 1")
	}
	if c.Scan.PageDelay.Duration < 0 || c.Scan.EnrichDelay.Duration < 0 || c.Scan.Cooldown.Duration < 0 {
		errs = append(errs, "scan: delays must not be negative")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, fmt.Sprintf("server: rate_limit must be >= 0, got %d", c.Server.RateLimit))
		}
		if c.Server.RateLimit > 0 && !c.Redis.Enabled {
			errs = append(errs, "server: rate_limit requires redis.enabled")
		}
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
