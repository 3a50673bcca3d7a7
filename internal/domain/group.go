package domain

import "github.com/shopspring/decimal"

// RedeemOnlyOutcome is the sentinel outcome shown for groups synthesized
// from redemptions whose fills fall outside the queried activity window.
const RedeemOnlyOutcome = "—"

// TradeGroup aggregates every trade sharing a (market, outcome) key into one
// per-position history row.
type TradeGroup struct {
	Market        string          `json:"market"`
	MarketTitle   string          `json:"market_title"`
	Category      string          `json:"category"`
	Outcome       string          `json:"outcome"`
	LastMatchTime int64           `json:"last_match_time"` // max fill/redeem timestamp
	AvgBuyPrice   decimal.Decimal `json:"avg_buy_price"`   // size-weighted over BUY fills
	TotalBought   decimal.Decimal `json:"total_bought"`    // Σ BUY notional
	PnL           decimal.Decimal `json:"pnl"`             // net cash flow, fills + redemptions
}
