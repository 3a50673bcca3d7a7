// Package feed bridges the Polymarket WebSocket market channel into the
// price cache so open positions are marked with live prices between
// reconciliation runs.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poiselabs/poise/internal/domain"
	"github.com/poiselabs/poise/internal/platform/polymarket"
)

// PriceSocket is the slice of the WebSocket client the feed needs.
type PriceSocket interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, assetIDs []string) error
	OnPriceUpdate(handler polymarket.PriceUpdateHandler)
	Close() error
}

// AssetBinding maps a CLOB token ID to the (market, outcome) pair the price
// cache is keyed by. Bindings come from the wallet's open positions.
type AssetBinding struct {
	AssetID string
	Market  string
	Outcome string
}

// BindingsFromActivities derives the asset bindings for a set of open
// positions by matching each (market, outcome) against the activity log,
// which carries the CLOB token ID for every fill.
func BindingsFromActivities(positions []domain.Position, acts []domain.Activity) []AssetBinding {
	type key struct{ market, outcome string }
	wanted := make(map[key]bool, len(positions))
	for _, p := range positions {
		wanted[key{p.Market, p.Outcome}] = true
	}

	seen := make(map[string]bool)
	var bindings []AssetBinding
	for _, a := range acts {
		if a.Kind != domain.ActivityTrade || a.AssetID == "" || seen[a.AssetID] {
			continue
		}
		if !wanted[key{a.Market, a.Outcome}] {
			continue
		}
		seen[a.AssetID] = true
		bindings = append(bindings, AssetBinding{
			AssetID: a.AssetID,
			Market:  a.Market,
			Outcome: a.Outcome,
		})
	}
	return bindings
}

// PriceFeed subscribes to last-trade-price messages for tracked assets and
// writes each update into the price cache. Updates for assets without a
// binding are dropped.
type PriceFeed struct {
	socket PriceSocket
	prices domain.PriceCache
	logger *slog.Logger

	mu     sync.RWMutex
	assets map[string]AssetBinding
}

// NewPriceFeed creates a PriceFeed writing through to the given cache.
func NewPriceFeed(socket PriceSocket, prices domain.PriceCache, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		socket: socket,
		prices: prices,
		logger: logger.With(slog.String("component", "price_feed")),
		assets: make(map[string]AssetBinding),
	}
}

// Track registers bindings and subscribes to their asset IDs. Already
// tracked assets are skipped so repeated reconciliation runs do not
// resubscribe the whole book.
func (f *PriceFeed) Track(ctx context.Context, bindings []AssetBinding) error {
	f.mu.Lock()
	var fresh []string
	for _, b := range bindings {
		if b.AssetID == "" {
			continue
		}
		if _, ok := f.assets[b.AssetID]; ok {
			continue
		}
		f.assets[b.AssetID] = b
		fresh = append(fresh, b.AssetID)
	}
	f.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	if err := f.socket.Subscribe(ctx, fresh); err != nil {
		return err
	}
	f.logger.Info("tracking assets", slog.Int("new", len(fresh)))
	return nil
}

// Run connects the socket, installs the price handler, and blocks until the
// context is cancelled. The socket is closed on return.
func (f *PriceFeed) Run(ctx context.Context) error {
	f.socket.OnPriceUpdate(f.handleUpdate)

	if err := f.socket.Connect(ctx); err != nil {
		return err
	}
	f.logger.Info("price feed started")
	defer f.logger.Info("price feed stopped")

	<-ctx.Done()
	if err := f.socket.Close(); err != nil {
		f.logger.Debug("socket close failed", slog.String("error", err.Error()))
	}
	return ctx.Err()
}

func (f *PriceFeed) handleUpdate(update domain.PriceUpdate) {
	f.mu.RLock()
	binding, ok := f.assets[update.AssetID]
	f.mu.RUnlock()
	if !ok {
		return
	}

	ts := time.Unix(update.Timestamp, 0)
	if update.Timestamp <= 0 {
		ts = time.Now()
	}

	// Cache writes are fire-and-forget; the next update overwrites.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.prices.SetPrice(ctx, binding.Market, binding.Outcome, update.Price, ts); err != nil {
		f.logger.Debug("price cache write failed",
			slog.String("market", binding.Market),
			slog.String("outcome", binding.Outcome),
			slog.String("error", err.Error()),
		)
	}
}
