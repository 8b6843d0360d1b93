package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LIMITEDBOT_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = DefaultTiers()
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LIMITEDBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Roblox ──
	setInt64(&cfg.Roblox.UserID, "LIMITEDBOT_ROBLOX_USER_ID")
	setStr(&cfg.Roblox.Cookie, "ROBLOSECURITY") // compatibility alias
	setStr(&cfg.Roblox.Cookie, "LIMITEDBOT_ROBLOX_COOKIE")
	setInt64Slice(&cfg.Roblox.KeepAssets, "LIMITEDBOT_ROBLOX_KEEP_ASSETS")
	setStr(&cfg.Roblox.InventoryURL, "LIMITEDBOT_ROBLOX_INVENTORY_URL")
	setStr(&cfg.Roblox.TradesURL, "LIMITEDBOT_ROBLOX_TRADES_URL")
	setFloat64(&cfg.Roblox.RequestsPerSecond, "LIMITEDBOT_ROBLOX_REQUESTS_PER_SECOND")
	setDuration(&cfg.Roblox.Timeout, "LIMITEDBOT_ROBLOX_TIMEOUT")

	// ── Rolimons ──
	setStr(&cfg.Rolimons.ItemDetailsURL, "LIMITEDBOT_ROLIMONS_ITEM_DETAILS_URL")
	setStr(&cfg.Rolimons.TradeAdsURL, "LIMITEDBOT_ROLIMONS_TRADE_ADS_URL")
	setDuration(&cfg.Rolimons.Timeout, "LIMITEDBOT_ROLIMONS_TIMEOUT")

	// ── Price cache ──
	setBool(&cfg.PriceCache.Enabled, "LIMITEDBOT_PRICE_CACHE_ENABLED")
	setStr(&cfg.PriceCache.File, "LIMITEDBOT_PRICE_CACHE_FILE")
	setDuration(&cfg.PriceCache.TTL, "LIMITEDBOT_PRICE_CACHE_TTL")
	setDuration(&cfg.PriceCache.MinRefreshInterval, "LIMITEDBOT_PRICE_CACHE_MIN_REFRESH_INTERVAL")
	setBool(&cfg.PriceCache.RefreshOnMissingID, "LIMITEDBOT_PRICE_CACHE_REFRESH_ON_MISSING_ID")
	setDuration(&cfg.PriceCache.FetchTimeout, "LIMITEDBOT_PRICE_CACHE_FETCH_TIMEOUT")

	// ── Trading ──
	setStringSlice(&cfg.Trading.Modes, "LIMITEDBOT_TRADING_MODES")
	setBool(&cfg.Trading.AvoidProjectedOnAsk, "LIMITEDBOT_TRADING_AVOID_PROJECTED_ON_ASK")
	setBool(&cfg.Trading.AvoidProjectedOnOffer, "LIMITEDBOT_TRADING_AVOID_PROJECTED_ON_OFFER")
	setBool(&cfg.Trading.UnknownIsProjected, "LIMITEDBOT_TRADING_UNKNOWN_IS_PROJECTED")
	setFloat64(&cfg.Trading.ValuedPremiumMinPercent, "LIMITEDBOT_TRADING_VALUED_PREMIUM_MIN_PERCENT")
	setFloat64(&cfg.Trading.ValuedPremiumMaxPercent, "LIMITEDBOT_TRADING_VALUED_PREMIUM_MAX_PERCENT")
	setInt(&cfg.Trading.PoolSize, "LIMITEDBOT_TRADING_POOL_SIZE")
	setInt(&cfg.Trading.ValuedPoolSize, "LIMITEDBOT_TRADING_VALUED_POOL_SIZE")

	// ── Limits ──
	setInt(&cfg.Limits.MaxOfferItems, "LIMITEDBOT_LIMITS_MAX_OFFER_ITEMS")
	setInt(&cfg.Limits.MaxRequestItems, "LIMITEDBOT_LIMITS_MAX_REQUEST_ITEMS")
	setInt64(&cfg.Limits.MinItemValue, "LIMITEDBOT_LIMITS_MIN_ITEM_VALUE")
	setInt(&cfg.Limits.MaxTradesPerHour, "LIMITEDBOT_LIMITS_MAX_TRADES_PER_HOUR")
	setDuration(&cfg.Limits.DedupTTL, "LIMITEDBOT_LIMITS_DEDUP_TTL")

	// ── Scanner ──
	setDuration(&cfg.Scanner.PollInterval, "LIMITEDBOT_SCANNER_POLL_INTERVAL")
	setDuration(&cfg.Scanner.SeenTTL, "LIMITEDBOT_SCANNER_SEEN_TTL")
	setInt(&cfg.Scanner.SeenSize, "LIMITEDBOT_SCANNER_SEEN_SIZE")
	setInt(&cfg.Scanner.QueueSize, "LIMITEDBOT_SCANNER_QUEUE_SIZE")
	setDuration(&cfg.Scanner.InventoryCacheTTL, "LIMITEDBOT_SCANNER_INVENTORY_CACHE_TTL")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LIMITEDBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LIMITEDBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LIMITEDBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LIMITEDBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LIMITEDBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LIMITEDBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LIMITEDBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "LIMITEDBOT_REDIS_KEY_PREFIX")
	setDuration(&cfg.Redis.MirrorTTL, "LIMITEDBOT_REDIS_MIRROR_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "LIMITEDBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "LIMITEDBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "LIMITEDBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LIMITEDBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LIMITEDBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LIMITEDBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LIMITEDBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LIMITEDBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LIMITEDBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LIMITEDBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LIMITEDBOT_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "LIMITEDBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "LIMITEDBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LIMITEDBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "LIMITEDBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LIMITEDBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LIMITEDBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LIMITEDBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LIMITEDBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.ArchivePrefix, "LIMITEDBOT_S3_ARCHIVE_PREFIX")
	setDuration(&cfg.S3.Retention, "LIMITEDBOT_S3_RETENTION")
	setDuration(&cfg.S3.PruneInterval, "LIMITEDBOT_S3_PRUNE_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "LIMITEDBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "LIMITEDBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "LIMITEDBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "LIMITEDBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "LIMITEDBOT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LIMITEDBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LIMITEDBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "LIMITEDBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "LIMITEDBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "LIMITEDBOT_MODE")
	setStr(&cfg.LogLevel, "LIMITEDBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		if cleaned := splitList(v); len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

// setInt64Slice ignores the variable entirely if any element fails to parse.
func setInt64Slice(dst *[]int64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parts := splitList(v)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return
		}
		ids = append(ids, n)
	}
	if len(ids) > 0 {
		*dst = ids
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}
