package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MarketInfo carries the Gamma market metadata the ledger needs: display
// fields plus the parallel outcome-name / outcome-price arrays used for
// live marks.
type MarketInfo struct {
	ConditionID   string            `json:"condition_id"`
	Title         string            `json:"title"`
	Slug          string            `json:"slug"`
	Outcomes      []string          `json:"outcomes"`
	OutcomePrices []decimal.Decimal `json:"outcome_prices"`
}

// PriceFor returns the live price for the named outcome, matching
// case-insensitively after trimming whitespace. It returns zero when the
// outcome is unmatched or the parallel arrays are inconsistent; callers
// treat zero as "no mark available".
func (m MarketInfo) PriceFor(outcome string) decimal.Decimal {
	target := strings.ToLower(strings.TrimSpace(outcome))
	for i, o := range m.Outcomes {
		if strings.ToLower(strings.TrimSpace(o)) != target {
			continue
		}
		if i >= len(m.OutcomePrices) {
			break
		}
		return m.OutcomePrices[i]
	}
	return decimal.Zero
}

// PriceUpdate is one live last-trade-price observation from the market data
// feed. Outcome is resolved by the feed from its asset registry; it is empty
// when the asset is unknown.
type PriceUpdate struct {
	Market    string          `json:"market"`
	AssetID   string          `json:"asset_id"`
	Outcome   string          `json:"outcome,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"` // unix seconds
}
