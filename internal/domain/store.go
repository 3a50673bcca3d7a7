package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one archived reconciliation run: the derived views computed
// from a single pass over the account's raw feeds. Snapshots are exports of
// derived data; they are never read back into the aggregation itself.
type Snapshot struct {
	ID        string
	Wallet    string
	TakenAt   time.Time
	TotalPnL  decimal.Decimal
	Groups    []TradeGroup
	Daily     []DailyPnL
	Positions []Position
}

// SnapshotStore persists reconciliation snapshots.
type SnapshotStore interface {
	// Save writes a snapshot and all of its rows atomically.
	Save(ctx context.Context, snap Snapshot) error

	// ListRecent returns snapshot headers (no rows) for a wallet, newest
	// first, up to limit.
	ListRecent(ctx context.Context, wallet string, limit int) ([]Snapshot, error)
}
