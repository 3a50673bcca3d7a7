package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiselabs/poise/internal/feed"
	"github.com/poiselabs/poise/internal/platform/polymarket"
	"github.com/poiselabs/poise/internal/server"
	"github.com/poiselabs/poise/internal/server/handler"
)

// feedRefreshInterval is how often the live price feed re-checks the open
// positions for new assets to track.
const feedRefreshInterval = 5 * time.Minute

// ReportMode runs one reconciliation pass and prints the full report as
// JSON to stdout.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting report mode")

	report, err := deps.Account.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("app: report: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("app: report: encode: %w", err)
	}
	return nil
}

// ServerMode serves the account views over HTTP and, when enabled, keeps
// open-position marks fresh via the WebSocket price feed.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode",
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("feed", a.cfg.Server.FeedEnabled),
	)

	g, ctx := errgroup.WithContext(ctx)

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(a.cfg.Mode, a.cfg.Wallet.Address, a.logger),
		Account: handler.NewAccountHandler(deps.Account, a.logger),
	}, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Server.FeedEnabled && a.cfg.Polymarket.WsHost != "" && deps.PriceCache != nil {
		socket := polymarket.NewWSClient(a.cfg.Polymarket.WsHost)
		priceFeed := feed.NewPriceFeed(socket, deps.PriceCache, a.logger)

		g.Go(func() error {
			return priceFeed.Run(ctx)
		})
		g.Go(func() error {
			return a.refreshFeedBindings(ctx, deps, priceFeed)
		})
	}

	return g.Wait()
}

// refreshFeedBindings tracks the open positions' asset IDs on the price
// feed, re-checking periodically as positions open and close. Lookup
// failures are logged and retried on the next tick.
func (a *App) refreshFeedBindings(ctx context.Context, deps *Dependencies, priceFeed *feed.PriceFeed) error {
	ticker := time.NewTicker(feedRefreshInterval)
	defer ticker.Stop()

	for {
		if err := a.trackOpenPositions(ctx, deps, priceFeed); err != nil {
			a.logger.WarnContext(ctx, "feed binding refresh failed",
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) trackOpenPositions(ctx context.Context, deps *Dependencies, priceFeed *feed.PriceFeed) error {
	acts, err := deps.Account.Activities(ctx)
	if err != nil {
		return err
	}
	positions, err := deps.Account.OpenPositions(ctx)
	if err != nil {
		return err
	}
	return priceFeed.Track(ctx, feed.BindingsFromActivities(positions, acts))
}

// ArchiveMode runs one reconciliation pass, persists the snapshot to
// Postgres, and exports it as JSONL to object storage.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	report, err := deps.Account.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	snap := report.Snapshot()

	if err := deps.Snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("app: archive: save snapshot: %w", err)
	}

	key, err := deps.Exporter.Export(ctx, snap)
	if err != nil {
		return fmt.Errorf("app: archive: export snapshot: %w", err)
	}

	a.logger.InfoContext(ctx, "snapshot archived",
		slog.String("wallet", snap.Wallet),
		slog.String("object_key", key),
		slog.String("total_pnl", snap.TotalPnL.String()),
	)
	return nil
}
