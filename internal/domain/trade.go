package domain

import "github.com/shopspring/decimal"

// Side is the direction of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is a canonical matched fill. Instances are never mutated after
// construction; enrichment produces a copy via WithMarketInfo.
type Trade struct {
	ID              string          `json:"id"`
	Market          string          `json:"market"` // venue condition ID
	AssetID         string          `json:"asset_id"`
	Side            Side            `json:"side"`
	Size            decimal.Decimal `json:"size"`
	Price           decimal.Decimal `json:"price"` // per share, in [0,1]
	FeeRateBps      decimal.Decimal `json:"fee_rate_bps"`
	Status          string          `json:"status"`
	MatchTime       int64           `json:"match_time"` // unix seconds
	Outcome         string          `json:"outcome"`
	TransactionHash string          `json:"transaction_hash"`
	TraderSide      string          `json:"trader_side"`
	MarketTitle     string          `json:"market_title,omitempty"`
	Category        string          `json:"category,omitempty"`
}

// WithMarketInfo returns a copy of the trade with market metadata attached.
func (t Trade) WithMarketInfo(title, category string) Trade {
	t.MarketTitle = title
	t.Category = category
	return t
}

// Notional is price × size, the gross cash value of the fill.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Size)
}
