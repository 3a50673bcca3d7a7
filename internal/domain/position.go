package domain

import "github.com/shopspring/decimal"

// Position is a currently open (unsettled) holding. A position exists only
// while net shares are positive, the market has not been redeemed, and its
// mark value clears the dust threshold.
type Position struct {
	Market       string          `json:"market"`
	MarketTitle  string          `json:"market_title"`
	Category     string          `json:"category"`
	Outcome      string          `json:"outcome"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	CurrentPrice decimal.Decimal `json:"current_price"` // live mark
	NetShares    decimal.Decimal `json:"net_shares"`    // Σ BUY size − Σ SELL size
	TotalBought  decimal.Decimal `json:"total_bought"`
	LastBuyTime  int64           `json:"last_buy_time"` // max BUY timestamp
}

// Value is the current mark value of the position.
func (p Position) Value() decimal.Decimal {
	return p.CurrentPrice.Mul(p.NetShares)
}

// DailyPnL is one calendar-day bucket of realized cash flow.
type DailyPnL struct {
	Date   string          `json:"date"` // YYYY-MM-DD in the ledger time zone
	Amount decimal.Decimal `json:"amount"`
}
