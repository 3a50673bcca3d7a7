package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

// flexStrings unmarshals from a JSON array of strings or from a string that
// itself contains a JSON-encoded array. Gamma sends outcome fields both
// ways: `["Yes","No"]` and `"[\"Yes\",\"No\"]"`.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*f = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return err
	}
	*f = list
	return nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIFill represents a matched fill as returned by the CLOB trades endpoint.
// All numeric fields arrive as strings.
type APIFill struct {
	ID              string `json:"id"`
	Market          string `json:"market"`
	AssetID         string `json:"asset_id"`
	Side            string `json:"side"` // "BUY" or "SELL"
	Size            string `json:"size"`
	Price           string `json:"price"`
	FeeRateBps      string `json:"fee_rate_bps"`
	Status          string `json:"status"` // "MATCHED", "MINED", "CONFIRMED", ...
	MatchTime       string `json:"match_time"`
	Outcome         string `json:"outcome"`
	TransactionHash string `json:"transaction_hash"`
	TraderSide      string `json:"trader_side"`
	Owner           string `json:"owner"`
	BucketIndex     int    `json:"bucket_index"`
}

// ToTrade converts an APIFill to a domain.Trade. The conversion is strict:
// a fill whose numeric fields do not parse is a corrupt ledger input, and
// silently coercing it to zero would skew every downstream aggregate, so
// the error carries domain.ErrMalformedRecord for the caller to surface.
func (f *APIFill) ToTrade() (domain.Trade, error) {
	size, err := decimal.NewFromString(f.Size)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: fill %s: size %q", domain.ErrMalformedRecord, f.ID, f.Size)
	}
	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: fill %s: price %q", domain.ErrMalformedRecord, f.ID, f.Price)
	}
	feeBps, err := decimal.NewFromString(f.FeeRateBps)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: fill %s: fee_rate_bps %q", domain.ErrMalformedRecord, f.ID, f.FeeRateBps)
	}
	matchTime, err := strconv.ParseInt(f.MatchTime, 10, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: fill %s: match_time %q", domain.ErrMalformedRecord, f.ID, f.MatchTime)
	}

	var side domain.Side
	switch f.Side {
	case "BUY":
		side = domain.SideBuy
	case "SELL":
		side = domain.SideSell
	default:
		return domain.Trade{}, fmt.Errorf("%w: fill %s: side %q", domain.ErrMalformedRecord, f.ID, f.Side)
	}

	return domain.Trade{
		ID:              f.ID,
		Market:          f.Market,
		AssetID:         f.AssetID,
		Side:            side,
		Size:            size,
		Price:           price,
		FeeRateBps:      feeBps,
		Status:          f.Status,
		MatchTime:       matchTime,
		Outcome:         f.Outcome,
		TransactionHash: f.TransactionHash,
		TraderSide:      f.TraderSide,
	}, nil
}

// APIBalanceAllowance is the collateral balance response. Balance is the raw
// USDC amount in 6-decimal base units.
type APIBalanceAllowance struct {
	Balance    string            `json:"balance"`
	Allowances map[string]string `json:"allowances"`
}

// usdcBase converts raw 6-decimal USDC units to whole currency units.
var usdcBase = decimal.NewFromInt(1_000_000)

// ToBalance parses the raw balance and scales it to currency units.
func (b *APIBalanceAllowance) ToBalance() (decimal.Decimal, error) {
	if b.Balance == "" {
		return decimal.Zero, nil
	}
	raw, err := decimal.NewFromString(b.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: balance %q", domain.ErrMalformedRecord, b.Balance)
	}
	return raw.Div(usdcBase), nil
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIActivity represents one entry from the data-api activity log. Numeric
// fields arrive as JSON numbers; decimal.Decimal accepts both numbers and
// strings, which covers the API's occasional quoting. They are pointers so
// that an absent field can be told apart from a literal zero.
type APIActivity struct {
	Type            string           `json:"type"` // "TRADE", "REDEEM", "SPLIT", ...
	ConditionID     string           `json:"conditionId"`
	Asset           string           `json:"asset"`
	Side            string           `json:"side"`
	Size            *decimal.Decimal `json:"size"`
	Price           *decimal.Decimal `json:"price"`
	UsdcSize        *decimal.Decimal `json:"usdcSize"`
	Timestamp       *int64           `json:"timestamp"`
	Outcome         string           `json:"outcome"`
	Title           string           `json:"title"`
	Slug            string           `json:"slug"`
	TransactionHash string           `json:"transactionHash"`
	ProxyWallet     string           `json:"proxyWallet"`
}

// ToActivity converts an APIActivity to a domain.Activity. Only TRADE and
// REDEEM kinds are representable; the caller filters other kinds first.
// Numeric fields required by the kind must be present: a TRADE without a
// size, price, or timestamp (or a REDEEM without size, usdcSize, or
// timestamp) is a corrupt record, not a zero one.
func (a *APIActivity) ToActivity() (domain.Activity, error) {
	var kind domain.ActivityKind
	switch a.Type {
	case "TRADE":
		kind = domain.ActivityTrade
	case "REDEEM":
		kind = domain.ActivityRedeem
	default:
		return domain.Activity{}, fmt.Errorf("%w: activity %s: type %q", domain.ErrMalformedRecord, a.TransactionHash, a.Type)
	}

	if a.Size == nil {
		return domain.Activity{}, fmt.Errorf("%w: activity %s: missing size", domain.ErrMalformedRecord, a.TransactionHash)
	}
	if a.Timestamp == nil {
		return domain.Activity{}, fmt.Errorf("%w: activity %s: missing timestamp", domain.ErrMalformedRecord, a.TransactionHash)
	}
	if kind == domain.ActivityTrade && a.Price == nil {
		return domain.Activity{}, fmt.Errorf("%w: activity %s: missing price", domain.ErrMalformedRecord, a.TransactionHash)
	}
	if kind == domain.ActivityRedeem && a.UsdcSize == nil {
		return domain.Activity{}, fmt.Errorf("%w: activity %s: missing usdcSize", domain.ErrMalformedRecord, a.TransactionHash)
	}

	act := domain.Activity{
		Kind:            kind,
		Market:          a.ConditionID,
		AssetID:         a.Asset,
		Size:            *a.Size,
		Price:           derefDecimal(a.Price),
		UsdcSize:        derefDecimal(a.UsdcSize),
		Timestamp:       *a.Timestamp,
		Outcome:         a.Outcome,
		Title:           a.Title,
		Slug:            a.Slug,
		TransactionHash: a.TransactionHash,
	}

	if kind == domain.ActivityTrade {
		switch a.Side {
		case "BUY":
			act.Side = domain.SideBuy
		case "SELL":
			act.Side = domain.SideSell
		default:
			return domain.Activity{}, fmt.Errorf("%w: activity %s: side %q", domain.ErrMalformedRecord, a.TransactionHash, a.Side)
		}
	}

	return act, nil
}

// derefDecimal reads an optional decimal field, treating absence as zero.
func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarketInfo represents a market as returned by the Gamma markets
// endpoint, reduced to the metadata the ledger consumes.
type APIMarketInfo struct {
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Title         string      `json:"title"`
	Slug          string      `json:"slug"`
	Outcomes      flexStrings `json:"outcomes"`
	OutcomePrices flexStrings `json:"outcomePrices"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}

// ToMarketInfo converts an APIMarketInfo to a domain.MarketInfo. Unlike the
// fill converter this one is tolerant: market metadata only affects display
// and marks, so an unparseable price becomes a zero mark instead of failing
// the whole lookup.
func (m *APIMarketInfo) ToMarketInfo() domain.MarketInfo {
	info := domain.MarketInfo{
		ConditionID: m.ConditionID,
		Title:       m.Question,
		Slug:        m.Slug,
		Outcomes:    []string(m.Outcomes),
	}
	if info.Title == "" {
		info.Title = m.Title
	}

	info.OutcomePrices = make([]decimal.Decimal, len(m.OutcomePrices))
	for i, p := range m.OutcomePrices {
		// Keep the arrays parallel: a bad price slot stays zero.
		if v, err := decimal.NewFromString(p); err == nil {
			info.OutcomePrices[i] = v
		}
	}

	return info
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// PriceMessage represents the most recent trade price for an asset on the
// market channel.
type PriceMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// PriceChangeMessage represents an incremental orderbook price-level update.
type PriceChangeMessage struct {
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe or
// unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
	Markets []string `json:"markets,omitempty"`
}

// ToPriceUpdate converts a PriceMessage to a domain.PriceUpdate. Unparseable
// prices convert to a zero update, which the feed drops.
func (p *PriceMessage) ToPriceUpdate() domain.PriceUpdate {
	upd := domain.PriceUpdate{
		AssetID: p.AssetID,
		Market:  p.Market,
	}
	if v, err := decimal.NewFromString(p.Price); err == nil {
		upd.Price = v
	}
	if ts, err := strconv.ParseInt(p.Timestamp, 10, 64); err == nil {
		upd.Timestamp = ts
	}
	return upd
}
