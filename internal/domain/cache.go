package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MarketCache caches Gamma market metadata keyed by condition ID.
type MarketCache interface {
	// Set stores market info with the cache's TTL.
	Set(ctx context.Context, info MarketInfo) error

	// Get returns cached info for a condition ID, or ErrNotFound.
	Get(ctx context.Context, conditionID string) (MarketInfo, error)
}

// PriceCache caches the latest observed outcome price per (market, outcome).
type PriceCache interface {
	// SetPrice stores the latest price and its observation time.
	SetPrice(ctx context.Context, market, outcome string, price decimal.Decimal, ts time.Time) error

	// GetPrice returns the latest cached price, or ErrNotFound.
	GetPrice(ctx context.Context, market, outcome string) (decimal.Decimal, time.Time, error)
}
