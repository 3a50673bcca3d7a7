// Package ledger is the account reconciliation and aggregation engine. It
// reduces the two raw record streams (matched fills and the combined
// TRADE/REDEEM activity log) to realized PnL by day, per-market trade
// history, and open positions. Every function is a pure transformation over
// its inputs: nothing here mutates its arguments, holds state between calls,
// or touches the network.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

var bps = decimal.NewFromInt(10000)

// TradePnL returns the signed cash flow of a single fill.
//
//	fee  = price × size × fee_rate_bps / 10000
//	SELL → +price×size − fee  (cash received)
//	BUY  → −(price×size + fee) (cash spent)
func TradePnL(t domain.Trade) decimal.Decimal {
	gross := t.Notional()
	fee := gross.Mul(t.FeeRateBps).Div(bps)
	if t.Side == domain.SideSell {
		return gross.Sub(fee)
	}
	return gross.Add(fee).Neg()
}

// DailyPnL buckets per-fill cash flow by the calendar day of the fill in the
// given location and returns the buckets newest-first. The sum of the
// returned buckets always equals the direct sum of TradePnL over trades,
// regardless of input order.
func DailyPnL(trades []domain.Trade, loc *time.Location) []domain.DailyPnL {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make(map[string]decimal.Decimal)
	for _, t := range trades {
		day := time.Unix(t.MatchTime, 0).In(loc).Format("2006-01-02")
		buckets[day] = buckets[day].Add(TradePnL(t))
	}

	out := make([]domain.DailyPnL, 0, len(buckets))
	for day, amount := range buckets {
		out = append(out, domain.DailyPnL{Date: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// TotalPnL sums the daily buckets into a single realized total.
func TotalPnL(daily []domain.DailyPnL) decimal.Decimal {
	total := decimal.Zero
	for _, d := range daily {
		total = total.Add(d.Amount)
	}
	return total
}
