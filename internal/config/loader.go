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
// built-in defaults, applies POISE_* environment variable overrides, and
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

// applyEnvOverrides reads well-known POISE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.Address, "POISE_WALLET_ADDRESS")
	setStr(&cfg.Wallet.PrivateKey, "POISE_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "POISE_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "POISE_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "POISE_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "POISE_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "POISE_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.WsHost, "POISE_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "POISE_POLYMARKET_CHAIN_ID")

	// ── CLOB credentials ──
	setStr(&cfg.Clob.ApiKey, "POISE_CLOB_API_KEY")
	setStr(&cfg.Clob.ApiSecret, "POISE_CLOB_API_SECRET")
	setStr(&cfg.Clob.ApiPassphrase, "POISE_CLOB_API_PASSPHRASE")

	// ── Ledger ──
	setFloat64(&cfg.Ledger.DustThreshold, "POISE_LEDGER_DUST_THRESHOLD")
	setStringSlice(&cfg.Ledger.SettledStatuses, "POISE_LEDGER_SETTLED_STATUSES")
	setStr(&cfg.Ledger.TimeZone, "POISE_LEDGER_TIME_ZONE")
	setInt(&cfg.Ledger.ActivityLimit, "POISE_LEDGER_ACTIVITY_LIMIT")
	setInt(&cfg.Ledger.LastTrades, "POISE_LEDGER_LAST_TRADES")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POISE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POISE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POISE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POISE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POISE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POISE_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "POISE_REDIS_CACHE_TTL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POISE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POISE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POISE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POISE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POISE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POISE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POISE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POISE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POISE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POISE_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "POISE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POISE_S3_REGION")
	setStr(&cfg.S3.Bucket, "POISE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POISE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POISE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POISE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POISE_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "POISE_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "POISE_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "POISE_SERVER_CORS_ORIGINS")
	setBool(&cfg.Server.FeedEnabled, "POISE_SERVER_FEED_ENABLED")

	// ── Top-level ──
	setStr(&cfg.Mode, "POISE_MODE")
	setStr(&cfg.LogLevel, "POISE_LOG_LEVEL")
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
