package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ActivityKind distinguishes the two record shapes in the data-api activity
// log.
type ActivityKind string

const (
	ActivityTrade  ActivityKind = "TRADE"
	ActivityRedeem ActivityKind = "REDEEM"
)

// Activity is a single entry from the account activity log: either a fill
// (TRADE) or a claim of settled winnings (REDEEM).
type Activity struct {
	Kind            ActivityKind    `json:"type"`
	Market          string          `json:"market"` // conditionId
	AssetID         string          `json:"asset_id"`
	Side            Side            `json:"side"`
	Size            decimal.Decimal `json:"size"`
	Price           decimal.Decimal `json:"price"`
	UsdcSize        decimal.Decimal `json:"usdc_size"` // payout/notional in USDC
	Timestamp       int64           `json:"timestamp"` // unix seconds
	Outcome         string          `json:"outcome"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	TransactionHash string          `json:"transaction_hash"`
}

// Category derives the display category from the market slug: the token
// before the first hyphen, or "" when there is no slug. The naive split is
// intentional; it matches how the venue's slugs encode the topic prefix.
func (a Activity) Category() string {
	return CategoryFromSlug(a.Slug)
}

// CategoryFromSlug returns the first hyphen-delimited token of slug.
func CategoryFromSlug(slug string) string {
	if slug == "" {
		return ""
	}
	return strings.SplitN(slug, "-", 2)[0]
}
