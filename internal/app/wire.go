package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/poiselabs/poise/internal/blob/s3"
	"github.com/poiselabs/poise/internal/cache/redis"
	"github.com/poiselabs/poise/internal/config"
	"github.com/poiselabs/poise/internal/crypto"
	"github.com/poiselabs/poise/internal/domain"
	"github.com/poiselabs/poise/internal/ledger"
	"github.com/poiselabs/poise/internal/platform/polymarket"
	"github.com/poiselabs/poise/internal/service"
	"github.com/poiselabs/poise/internal/store/postgres"

	"github.com/shopspring/decimal"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Account *service.AccountService
	Prices  *service.PriceService

	// Server mode only.
	PriceCache domain.PriceCache

	// Archive mode only.
	Snapshots domain.SnapshotStore
	Exporter  *s3blob.Exporter
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signing credentials ---
	var signer *crypto.Signer
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load key: %w", err)
		}
		signer, err = crypto.NewSigner(key, cfg.Polymarket.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
	}

	var hmac *crypto.HMACAuth
	if cfg.Clob.ApiKey != "" {
		hmac = &crypto.HMACAuth{
			Key:        cfg.Clob.ApiKey,
			Secret:     cfg.Clob.ApiSecret,
			Passphrase: cfg.Clob.ApiPassphrase,
		}
	}

	// POLY_ADDRESS comes from the signer when we have one; with
	// pre-provisioned credentials only, fall back to the wallet address.
	clobAddress := ""
	if signer == nil {
		clobAddress = cfg.Wallet.Address
	}

	// --- Upstream clients ---
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, clobAddress, signer, hmac)
	if hmac == nil {
		if err := clob.DeriveAPIKey(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: derive api key: %w", err)
		}
		logger.InfoContext(ctx, "derived clob api credentials")
	}
	data := polymarket.NewDataClient(cfg.Polymarket.DataHost)
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)

	// --- Redis caches (server mode only) ---
	var marketCache domain.MarketCache
	var priceCache domain.PriceCache
	if cfg.Mode == "server" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		marketCache = redis.NewMarketCache(redisClient, cfg.Redis.CacheTTL.Duration)
		priceCache = redis.NewPriceCache(redisClient)
		deps.PriceCache = priceCache
	}

	// --- Services ---
	deps.Prices = service.NewPriceService(gamma, marketCache, priceCache, logger)
	deps.Account = service.NewAccountService(clob, data, deps.Prices, service.AccountConfig{
		Wallet:        cfg.Wallet.Address,
		ActivityLimit: cfg.Ledger.ActivityLimit,
		LastTrades:    cfg.Ledger.LastTrades,
		Location:      cfg.Location(),
		Ledger: ledger.Options{
			DustThreshold:   decimal.NewFromFloat(cfg.Ledger.DustThreshold),
			SettledStatuses: cfg.Ledger.SettledStatuses,
		},
	}, logger)

	// --- Snapshot archive (archive mode only) ---
	if cfg.Mode == "archive" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Snapshots = postgres.NewSnapshotStore(pgClient.Pool())

		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Exporter = s3blob.NewExporter(s3blob.NewWriter(s3Client), logger)
	}

	return deps, cleanup, nil
}
