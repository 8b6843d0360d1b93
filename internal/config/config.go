// Package config defines the top-level configuration for the limited trading
// bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LIMITEDBOT_* environment variables.
type Config struct {
	Roblox     RobloxConfig     `toml:"roblox"`
	Rolimons   RolimonsConfig   `toml:"rolimons"`
	PriceCache PriceCacheConfig `toml:"price_cache"`
	Trading    TradingConfig    `toml:"trading"`
	Limits     LimitsConfig     `toml:"limits"`
	Tiers      []TierConfig     `toml:"tiers"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// RobloxConfig identifies the trading account.
type RobloxConfig struct {
	UserID int64  `toml:"user_id"`
	Cookie string `toml:"cookie"`
	// KeepAssets are asset ids that are never offered.
	KeepAssets        []int64  `toml:"keep_assets"`
	InventoryURL      string   `toml:"inventory_url"`
	TradesURL         string   `toml:"trades_url"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           duration `toml:"timeout"`
}

// RolimonsConfig holds the value feed and trade ad endpoints.
type RolimonsConfig struct {
	ItemDetailsURL string   `toml:"item_details_url"`
	TradeAdsURL    string   `toml:"trade_ads_url"`
	Timeout        duration `toml:"timeout"`
}

// PriceCacheConfig is the value snapshot freshness policy.
type PriceCacheConfig struct {
	Enabled            bool     `toml:"enabled"`
	File               string   `toml:"file"`
	TTL                duration `toml:"ttl"`
	MinRefreshInterval duration `toml:"min_refresh_interval"`
	RefreshOnMissingID bool     `toml:"refresh_on_missing_id"`
	FetchTimeout       duration `toml:"fetch_timeout"`
}

// TradingConfig selects the search modes and their filters.
type TradingConfig struct {
	// Modes are tried in order; the first mode with a candidate wins.
	Modes                 []string `toml:"modes"`
	AvoidProjectedOnAsk   bool     `toml:"avoid_projected_on_ask"`
	AvoidProjectedOnOffer bool     `toml:"avoid_projected_on_offer"`
	UnknownIsProjected    bool     `toml:"unknown_is_projected"`
	// Premium bounds are fractions of the offer total: 0.3 means 30%.
	ValuedPremiumMinPercent float64 `toml:"valued_premium_min_percent"`
	ValuedPremiumMaxPercent float64 `toml:"valued_premium_max_percent"`
	PoolSize                int     `toml:"pool_size"`
	ValuedPoolSize          int     `toml:"valued_pool_size"`
}

// LimitsConfig bounds trade size and trading pace.
type LimitsConfig struct {
	MaxOfferItems    int      `toml:"max_offer_items"`
	MaxRequestItems  int      `toml:"max_request_items"`
	MinItemValue     int64    `toml:"min_item_value"`
	MaxTradesPerHour int      `toml:"max_trades_per_hour"`
	DedupTTL         duration `toml:"dedup_ttl"`
}

// TierConfig is one [[tiers]] table. Gain percents are fractions.
type TierConfig struct {
	MinValue       float64 `toml:"min_value"`
	MaxValue       float64 `toml:"max_value"`
	MinGainPercent float64 `toml:"min_gain_percent"`
	MaxGainPercent float64 `toml:"max_gain_percent"`
}

// ScannerConfig paces counterparty discovery.
type ScannerConfig struct {
	PollInterval      duration `toml:"poll_interval"`
	SeenTTL           duration `toml:"seen_ttl"`
	SeenSize          int      `toml:"seen_size"`
	QueueSize         int      `toml:"queue_size"`
	InventoryCacheTTL duration `toml:"inventory_cache_ttl"`
}

// RedisConfig holds Redis connection parameters. Without Redis the bot runs
// on in-process equivalents.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	MirrorTTL  duration `toml:"mirror_ttl"`
}

// PostgresConfig holds the connection parameters for candidate, scan and
// audit history.
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

// S3Config holds the snapshot archive bucket.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	ArchivePrefix  string   `toml:"archive_prefix"`
	Retention      duration `toml:"retention"`
	PruneInterval  duration `toml:"prune_interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml. Tiers are left empty and
// filled from DefaultTiers by Load when the file defines none.
func Defaults() Config {
	return Config{
		Roblox: RobloxConfig{
			RequestsPerSecond: 2,
			Timeout:           duration{15 * time.Second},
		},
		Rolimons: RolimonsConfig{
			Timeout: duration{20 * time.Second},
		},
		PriceCache: PriceCacheConfig{
			Enabled:            true,
			File:               "item_values_cache.json",
			TTL:                duration{10 * time.Minute},
			MinRefreshInterval: duration{2 * time.Minute},
			RefreshOnMissingID: true,
			FetchTimeout:       duration{20 * time.Second},
		},
		Trading: TradingConfig{
			Modes:                   []string{"valued", "upgrade", "downgrade", "1v1"},
			AvoidProjectedOnAsk:     true,
			AvoidProjectedOnOffer:   false,
			UnknownIsProjected:      false,
			ValuedPremiumMinPercent: 0.0,
			ValuedPremiumMaxPercent: 0.3,
			PoolSize:                10,
			ValuedPoolSize:          12,
		},
		Limits: LimitsConfig{
			MaxOfferItems:    4,
			MaxRequestItems:  4,
			MinItemValue:     1000,
			MaxTradesPerHour: 20,
			DedupTTL:         duration{24 * time.Hour},
		},
		Scanner: ScannerConfig{
			PollInterval:      duration{time.Minute},
			SeenTTL:           duration{6 * time.Hour},
			SeenSize:          50_000,
			QueueSize:         256,
			InventoryCacheTTL: duration{5 * time.Minute},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "limitedbot:",
			MirrorTTL:  duration{24 * time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "limitedbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "limitedbot-data",
			ForcePathStyle: true,
			ArchivePrefix:  "snapshots",
			Retention:      duration{30 * 24 * time.Hour},
			PruneInterval:  duration{6 * time.Hour},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"trade_found", "trade_executed", "trade_failed", "startup"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// DefaultTiers is a contiguous ladder used when the config defines none.
// Smaller holdings must win more to be worth a trade.
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{MinValue: 0, MaxValue: 10_000, MinGainPercent: 0.10, MaxGainPercent: 0.60},
		{MinValue: 10_000, MaxValue: 100_000, MinGainPercent: 0.05, MaxGainPercent: 0.40},
		{MinValue: 100_000, MaxValue: 1e12, MinGainPercent: 0.02, MaxGainPercent: 0.25},
	}
}

// TierBands converts the [[tiers]] tables into domain bands.
func (c *Config) TierBands() []domain.TierBand {
	bands := make([]domain.TierBand, len(c.Tiers))
	for i, t := range c.Tiers {
		bands[i] = domain.TierBand{
			MinValue:       t.MinValue,
			MaxValue:       t.MaxValue,
			MinGainPercent: t.MinGainPercent,
			MaxGainPercent: t.MaxGainPercent,
		}
	}
	return bands
}

// SearchModes parses Trading.Modes in order.
func (c *Config) SearchModes() ([]domain.SearchMode, error) {
	modes := make([]domain.SearchMode, 0, len(c.Trading.Modes))
	for _, name := range c.Trading.Modes {
		m, ok := domain.ParseSearchMode(name)
		if !ok {
			return nil, fmt.Errorf("config: trading mode %q: %w", name, domain.ErrUnknownMode)
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found. Gaps between tiers are not
// errors; the app logs them at startup.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Roblox account is needed to scan.
	if mode == "scan" || mode == "full" {
		if c.Roblox.UserID <= 0 {
			errs = append(errs, "roblox: user_id must be set for mode "+c.Mode)
		}
		if c.Roblox.Cookie == "" {
			errs = append(errs, "roblox: cookie must be set for mode "+c.Mode+" (or ROBLOSECURITY)")
		}
	}
	if c.Roblox.RequestsPerSecond <= 0 {
		errs = append(errs, "roblox: requests_per_second must be > 0")
	}

	// Price cache
	if c.PriceCache.Enabled {
		if c.PriceCache.TTL.Duration <= 0 {
			errs = append(errs, "price_cache: ttl must be > 0 when enabled")
		}
		if c.PriceCache.MinRefreshInterval.Duration < 0 {
			errs = append(errs, "price_cache: min_refresh_interval must be >= 0")
		}
	}

	// Trading
	if len(c.Trading.Modes) == 0 {
		errs = append(errs, "trading: modes must not be empty")
	}
	if _, err := c.SearchModes(); err != nil {
		errs = append(errs, fmt.Sprintf("trading: %v (valid: 1v1, upgrade, downgrade, valued)", err))
	}
	if c.Trading.ValuedPremiumMinPercent > c.Trading.ValuedPremiumMaxPercent {
		errs = append(errs, "trading: valued_premium_min_percent must not exceed valued_premium_max_percent")
	}
	if c.Trading.PoolSize < 1 || c.Trading.ValuedPoolSize < 1 {
		errs = append(errs, "trading: pool_size and valued_pool_size must be >= 1")
	}

	// Limits
	if c.Limits.MaxOfferItems < 1 || c.Limits.MaxRequestItems < 1 {
		errs = append(errs, "limits: max_offer_items and max_request_items must be >= 1")
	}
	if c.Limits.MaxTradesPerHour < 0 {
		errs = append(errs, "limits: max_trades_per_hour must be >= 0")
	}

	// Tiers
	if len(c.Tiers) == 0 {
		errs = append(errs, "tiers: at least one [[tiers]] band is required")
	}
	for i, t := range c.Tiers {
		if t.MinValue > t.MaxValue {
			errs = append(errs, fmt.Sprintf("tiers[%d]: min_value must not exceed max_value", i))
		}
		if t.MinGainPercent > t.MaxGainPercent {
			errs = append(errs, fmt.Sprintf("tiers[%d]: min_gain_percent must not exceed max_gain_percent", i))
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
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

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.S3.Retention.Duration < 0 {
			errs = append(errs, "s3: retention must be >= 0")
		}
	}

	// Server
	if mode == "server" || mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
