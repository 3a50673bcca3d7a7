package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

// groupKey identifies one economic position.
type groupKey struct {
	market  string
	outcome string
}

// tradeFromActivity converts a TRADE activity entry to a canonical fill.
// Activity-sourced fills carry fee_rate_bps=0 because the data-api already
// reports net amounts.
func tradeFromActivity(a domain.Activity) domain.Trade {
	return domain.Trade{
		ID:              a.TransactionHash,
		Market:          a.Market,
		AssetID:         a.AssetID,
		Side:            a.Side,
		Size:            a.Size,
		Price:           a.Price,
		FeeRateBps:      decimal.Zero,
		Status:          "CONFIRMED",
		MatchTime:       a.Timestamp,
		Outcome:         a.Outcome,
		TransactionHash: a.TransactionHash,
		MarketTitle:     a.Title,
		Category:        a.Category(),
	}
}

// redeemTrade synthesizes the SELL that economically closes a redeemed
// position: the whole holding sold at effective price usdcSize/size. That
// yields 1.00 per share for winning claims and fractional prices for
// partial resolutions (0.50 for a 50/50 settlement).
func redeemTrade(a domain.Activity) (domain.Trade, bool) {
	if a.Size.IsZero() {
		return domain.Trade{}, false
	}
	return domain.Trade{
		ID:              a.TransactionHash,
		Market:          a.Market,
		Side:            domain.SideSell,
		Size:            a.Size,
		Price:           a.UsdcSize.Div(a.Size),
		FeeRateBps:      decimal.Zero,
		Status:          "CONFIRMED",
		MatchTime:       a.Timestamp,
		TransactionHash: a.TransactionHash,
	}, true
}

// FillTrades converts only the TRADE entries of the activity log to
// canonical fills, preserving input order.
func FillTrades(acts []domain.Activity) []domain.Trade {
	var trades []domain.Trade
	for _, a := range acts {
		if a.Kind == domain.ActivityTrade {
			trades = append(trades, tradeFromActivity(a))
		}
	}
	return trades
}

// TradesFromActivities converts the full activity log to canonical trades
// for cash-flow accounting: TRADE entries directly, REDEEM entries as
// synthesized SELLs. Zero-size redemptions are skipped.
func TradesFromActivities(acts []domain.Activity) []domain.Trade {
	var trades []domain.Trade
	for _, a := range acts {
		switch a.Kind {
		case domain.ActivityTrade:
			trades = append(trades, tradeFromActivity(a))
		case domain.ActivityRedeem:
			if t, ok := redeemTrade(a); ok {
				trades = append(trades, t)
			}
		}
	}
	return trades
}

// GroupTrades partitions fills by (market, outcome) and computes per-group
// aggregates. Every input trade lands in exactly one group. Title and
// category come from the earliest fill in the group (ties broken by input
// order) so the result does not depend on map iteration. Groups are returned
// newest-first by last match time; equal times keep their relative order.
func GroupTrades(trades []domain.Trade) []domain.TradeGroup {
	buckets := make(map[groupKey][]domain.Trade)
	var order []groupKey
	for _, t := range trades {
		k := groupKey{market: t.Market, outcome: t.Outcome}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], t)
	}

	groups := make([]domain.TradeGroup, 0, len(order))
	for _, k := range order {
		fills := buckets[k]

		last := fills[0].MatchTime
		earliest := fills[0]
		for _, t := range fills[1:] {
			if t.MatchTime > last {
				last = t.MatchTime
			}
			if t.MatchTime < earliest.MatchTime {
				earliest = t
			}
		}

		buySize := decimal.Zero
		buyValue := decimal.Zero
		pnl := decimal.Zero
		for _, t := range fills {
			pnl = pnl.Add(TradePnL(t))
			if t.Side == domain.SideBuy {
				buySize = buySize.Add(t.Size)
				buyValue = buyValue.Add(t.Notional())
			}
		}

		avgBuy := decimal.Zero
		if buySize.IsPositive() {
			avgBuy = buyValue.Div(buySize)
		}

		groups = append(groups, domain.TradeGroup{
			Market:        k.market,
			MarketTitle:   earliest.MarketTitle,
			Category:      earliest.Category,
			Outcome:       k.outcome,
			LastMatchTime: last,
			AvgBuyPrice:   avgBuy,
			TotalBought:   buyValue,
			PnL:           pnl,
		})
	}

	sortGroupsNewestFirst(groups)
	return groups
}

// ApplyRedemptions folds REDEEM activity into the grouped trade history.
// Redemptions are keyed by market only: a redemption settles the whole
// market, whichever outcome the group tracked. Markets with redemptions but
// no fills in the queried window become redemption-only groups with the
// sentinel outcome.
func ApplyRedemptions(groups []domain.TradeGroup, acts []domain.Activity) []domain.TradeGroup {
	redeems := make(map[string][]domain.Activity)
	var marketOrder []string
	for _, a := range acts {
		if a.Kind != domain.ActivityRedeem {
			continue
		}
		if _, seen := redeems[a.Market]; !seen {
			marketOrder = append(marketOrder, a.Market)
		}
		redeems[a.Market] = append(redeems[a.Market], a)
	}

	result := make([]domain.TradeGroup, 0, len(groups)+len(marketOrder))
	grouped := make(map[string]bool, len(groups))
	for _, g := range groups {
		grouped[g.Market] = true
		rs, ok := redeems[g.Market]
		if !ok {
			result = append(result, g)
			continue
		}
		payout, latest := sumRedeems(rs)
		g.PnL = g.PnL.Add(payout)
		if latest.Timestamp > g.LastMatchTime {
			g.LastMatchTime = latest.Timestamp
		}
		result = append(result, g)
	}

	for _, market := range marketOrder {
		if grouped[market] {
			continue
		}
		payout, latest := sumRedeems(redeems[market])
		result = append(result, domain.TradeGroup{
			Market:        market,
			MarketTitle:   latest.Title,
			Category:      latest.Category(),
			Outcome:       domain.RedeemOnlyOutcome,
			LastMatchTime: latest.Timestamp,
			AvgBuyPrice:   decimal.Zero,
			TotalBought:   decimal.Zero,
			PnL:           payout,
		})
	}

	sortGroupsNewestFirst(result)
	return result
}

// sumRedeems returns the total payout of a market's redemptions and the
// entry with the latest timestamp.
func sumRedeems(rs []domain.Activity) (decimal.Decimal, domain.Activity) {
	payout := decimal.Zero
	latest := rs[0]
	for _, r := range rs {
		payout = payout.Add(r.UsdcSize)
		if r.Timestamp > latest.Timestamp {
			latest = r
		}
	}
	return payout, latest
}

func sortGroupsNewestFirst(groups []domain.TradeGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].LastMatchTime > groups[j].LastMatchTime
	})
}
