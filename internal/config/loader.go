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
// built-in defaults, applies BANGER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BANGER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Provider ──
	setStr(&cfg.Provider.BaseURL, "BANGER_PROVIDER_BASE_URL")
	setStr(&cfg.Provider.APIKey, "BANGER_PROVIDER_API_KEY")
	setDuration(&cfg.Provider.RequestTimeout, "BANGER_PROVIDER_REQUEST_TIMEOUT")
	setInt(&cfg.Provider.RequestsPerMinute, "BANGER_PROVIDER_REQUESTS_PER_MINUTE")

	// ── Database ──
	setStr(&cfg.Database.DSN, "BANGER_DATABASE_DSN")
	setStr(&cfg.Database.Host, "BANGER_DATABASE_HOST")
	setInt(&cfg.Database.Port, "BANGER_DATABASE_PORT")
	setStr(&cfg.Database.Database, "BANGER_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "BANGER_DATABASE_USER")
	setStr(&cfg.Database.Password, "BANGER_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "BANGER_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "BANGER_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "BANGER_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "BANGER_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BANGER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BANGER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BANGER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BANGER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BANGER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BANGER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BANGER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BANGER_S3_REGION")
	setStr(&cfg.S3.Bucket, "BANGER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BANGER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BANGER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BANGER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BANGER_S3_FORCE_PATH_STYLE")

	// ── Jobs ──
	setDuration(&cfg.Jobs.SyncInterval, "BANGER_JOBS_SYNC_INTERVAL")
	setDuration(&cfg.Jobs.SettleInterval, "BANGER_JOBS_SETTLE_INTERVAL")
	setDuration(&cfg.Jobs.InvocationTimeout, "BANGER_JOBS_INVOCATION_TIMEOUT")
	setBool(&cfg.Jobs.ArchiveEnabled, "BANGER_JOBS_ARCHIVE_ENABLED")
	setInt(&cfg.Jobs.ArchiveRetentionDays, "BANGER_JOBS_ARCHIVE_RETENTION_DAYS")
	setInt(&cfg.Jobs.ArchiveHourUTC, "BANGER_JOBS_ARCHIVE_HOUR_UTC")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BANGER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BANGER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BANGER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BANGER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BANGER_MODE")
	setStr(&cfg.LogLevel, "BANGER_LOG_LEVEL")
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
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
