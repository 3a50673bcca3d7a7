package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
	"github.com/poiselabs/poise/internal/ledger"
)

// MarketSource provides market metadata, normally the Gamma client.
type MarketSource interface {
	GetMarketsByConditionIDs(ctx context.Context, conditionIDs []string) ([]domain.MarketInfo, error)
}

// PriceService resolves market metadata and outcome prices. Lookups degrade
// rather than fail: a market that cannot be resolved yields empty metadata
// and zero prices, and the caller carries on.
type PriceService struct {
	gamma   MarketSource
	markets domain.MarketCache // optional read-through cache
	prices  domain.PriceCache  // optional live price overlay
	logger  *slog.Logger
}

// NewPriceService creates a PriceService. The markets and prices caches may
// be nil; without them every lookup goes straight to Gamma.
func NewPriceService(gamma MarketSource, markets domain.MarketCache, prices domain.PriceCache, logger *slog.Logger) *PriceService {
	return &PriceService{
		gamma:   gamma,
		markets: markets,
		prices:  prices,
		logger:  logger,
	}
}

// MarketsFor returns metadata for the given condition IDs, keyed by
// condition ID. Cached entries are served from the cache; the rest are
// fetched from Gamma in one batch and written back. Markets that cannot be
// resolved are simply absent from the result.
func (s *PriceService) MarketsFor(ctx context.Context, conditionIDs []string) map[string]domain.MarketInfo {
	out := make(map[string]domain.MarketInfo, len(conditionIDs))
	seen := make(map[string]bool, len(conditionIDs))

	var missing []string
	for _, cid := range conditionIDs {
		if cid == "" || seen[cid] {
			continue
		}
		seen[cid] = true
		if s.markets != nil {
			if info, err := s.markets.Get(ctx, cid); err == nil {
				out[cid] = info
				continue
			}
		}
		missing = append(missing, cid)
	}

	if len(missing) == 0 {
		return out
	}

	infos, err := s.gamma.GetMarketsByConditionIDs(ctx, missing)
	if err != nil {
		s.logger.WarnContext(ctx, "price_service: market lookup failed",
			slog.Int("requested", len(missing)),
			slog.String("error", err.Error()),
		)
		return out
	}

	for _, info := range infos {
		out[info.ConditionID] = info
		if s.markets != nil {
			if cacheErr := s.markets.Set(ctx, info); cacheErr != nil {
				s.logger.DebugContext(ctx, "price_service: market cache write failed",
					slog.String("market", info.ConditionID),
					slog.String("error", cacheErr.Error()),
				)
			}
		}
	}
	return out
}

// PriceFor returns the best available price for (market, outcome): the live
// cached price when the feed has written one, otherwise the Gamma outcome
// price. Returns zero when neither source has a mark.
func (s *PriceService) PriceFor(ctx context.Context, market, outcome string) decimal.Decimal {
	if s.prices != nil {
		if p, _, err := s.prices.GetPrice(ctx, market, outcome); err == nil && p.IsPositive() {
			return p
		}
	}
	infos := s.MarketsFor(ctx, []string{market})
	if info, ok := infos[market]; ok {
		return info.PriceFor(outcome)
	}
	return decimal.Zero
}

// Lookup returns a ledger.PriceLookup over a pre-fetched metadata map,
// overlaid with live cached prices. Resolving metadata up front keeps the
// aggregation pass free of per-position round trips.
func (s *PriceService) Lookup(ctx context.Context, markets map[string]domain.MarketInfo) ledger.PriceLookup {
	return func(market, outcome string) decimal.Decimal {
		if s.prices != nil {
			if p, _, err := s.prices.GetPrice(ctx, market, outcome); err == nil && p.IsPositive() {
				return p
			}
		}
		if info, ok := markets[market]; ok {
			return info.PriceFor(outcome)
		}
		return decimal.Zero
	}
}
