package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

// PriceLookup resolves the live price for a (market, outcome). A lookup
// that fails must return decimal zero; it is never allowed to abort the
// aggregation.
type PriceLookup func(market, outcome string) decimal.Decimal

// Options carries the named accounting constants that would otherwise be
// magic literals. Use DefaultOptions unless a caller needs to override them.
type Options struct {
	// DustThreshold excludes positions whose mark value (current_price ×
	// net_shares) is at or below this amount, in currency units.
	DustThreshold decimal.Decimal

	// SettledStatuses are the fill lifecycle states treated as final.
	SettledStatuses []string
}

// DefaultOptions returns the venue's standard accounting constants.
func DefaultOptions() Options {
	return Options{
		DustThreshold:   decimal.NewFromFloat(0.01),
		SettledStatuses: []string{"MATCHED", "MINED", "CONFIRMED"},
	}
}

// settled reports whether status is one of the settled lifecycle states.
func (o Options) settled(status string) bool {
	for _, s := range o.SettledStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// LastSettled returns the n most recent settled fills, newest-first.
func LastSettled(trades []domain.Trade, opts Options, n int) []domain.Trade {
	var settled []domain.Trade
	for _, t := range trades {
		if opts.settled(t.Status) {
			settled = append(settled, t)
		}
	}
	sort.SliceStable(settled, func(i, j int) bool {
		return settled[i].MatchTime > settled[j].MatchTime
	})
	if n > 0 && len(settled) > n {
		settled = settled[:n]
	}
	return settled
}

// OpenPositions derives the currently held positions from the activity log.
//
// Markets with any REDEEM entry are excluded outright: a redeemed market has
// no open position left even when residual unsold shares remain in the
// ledger. Remaining TRADE entries are partitioned by (market, outcome); a
// partition is open when net shares (Σ BUY − Σ SELL) are positive. Each open
// partition is marked with priceFor and dropped when its value is at or
// below the dust threshold, which covers both lost outcomes priced near
// zero and negligible leftover lots. Results are newest-first by last BUY
// time.
func OpenPositions(acts []domain.Activity, priceFor PriceLookup, opts Options) []domain.Position {
	redeemed := make(map[string]bool)
	for _, a := range acts {
		if a.Kind == domain.ActivityRedeem {
			redeemed[a.Market] = true
		}
	}

	type marketMeta struct {
		title string
		slug  string
	}
	buckets := make(map[groupKey][]domain.Activity)
	var order []groupKey
	meta := make(map[string]marketMeta)
	for _, a := range acts {
		if a.Kind != domain.ActivityTrade {
			continue
		}
		k := groupKey{market: a.Market, outcome: a.Outcome}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], a)
		if _, seen := meta[a.Market]; !seen {
			meta[a.Market] = marketMeta{title: a.Title, slug: a.Slug}
		}
	}

	var open []domain.Position
	for _, k := range order {
		if redeemed[k.market] {
			continue
		}
		fills := buckets[k]

		buySize := decimal.Zero
		sellSize := decimal.Zero
		buyValue := decimal.Zero
		var lastBuy int64
		for _, f := range fills {
			switch f.Side {
			case domain.SideBuy:
				buySize = buySize.Add(f.Size)
				buyValue = buyValue.Add(f.Price.Mul(f.Size))
				if f.Timestamp > lastBuy {
					lastBuy = f.Timestamp
				}
			case domain.SideSell:
				sellSize = sellSize.Add(f.Size)
			}
		}

		netShares := buySize.Sub(sellSize)
		if !netShares.IsPositive() {
			continue
		}

		avgBuy := decimal.Zero
		if buySize.IsPositive() {
			avgBuy = buyValue.Div(buySize)
		}

		m := meta[k.market]
		open = append(open, domain.Position{
			Market:      k.market,
			MarketTitle: m.title,
			Category:    domain.CategoryFromSlug(m.slug),
			Outcome:     k.outcome,
			AvgBuyPrice: avgBuy,
			NetShares:   netShares,
			TotalBought: buyValue,
			LastBuyTime: lastBuy,
		})
	}

	sort.SliceStable(open, func(i, j int) bool {
		return open[i].LastBuyTime > open[j].LastBuyTime
	})

	result := make([]domain.Position, 0, len(open))
	for _, p := range open {
		p.CurrentPrice = decimal.Zero
		if priceFor != nil {
			p.CurrentPrice = priceFor(p.Market, p.Outcome)
		}
		if p.Value().LessThanOrEqual(opts.DustThreshold) {
			continue
		}
		result = append(result, p)
	}
	return result
}
