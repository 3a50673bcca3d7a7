package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given connection
// pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Save writes the snapshot header and all of its rows in one transaction.
// A zero snapshot ID is assigned a fresh UUID.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	id := snap.ID
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO snapshots (id, wallet, taken_at, total_pnl) VALUES ($1, $2, $3, $4)`,
		id, snap.Wallet, snap.TakenAt, snap.TotalPnL.String(),
	); err != nil {
		return fmt.Errorf("postgres: insert snapshot %s: %w", id, err)
	}

	batch := &pgx.Batch{}

	const groupInsert = `
		INSERT INTO snapshot_groups (
			snapshot_id, market, market_title, category, outcome,
			last_match_time, avg_buy_price, total_bought, pnl
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, g := range snap.Groups {
		batch.Queue(groupInsert,
			id, g.Market, g.MarketTitle, g.Category, g.Outcome,
			g.LastMatchTime, g.AvgBuyPrice.String(), g.TotalBought.String(), g.PnL.String(),
		)
	}

	const dailyInsert = `
		INSERT INTO snapshot_daily_pnl (snapshot_id, day, amount)
		VALUES ($1, $2, $3)`
	for _, d := range snap.Daily {
		batch.Queue(dailyInsert, id, d.Date, d.Amount.String())
	}

	const positionInsert = `
		INSERT INTO snapshot_positions (
			snapshot_id, market, market_title, category, outcome,
			avg_buy_price, current_price, net_shares, total_bought, last_buy_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, p := range snap.Positions {
		batch.Queue(positionInsert,
			id, p.Market, p.MarketTitle, p.Category, p.Outcome,
			p.AvgBuyPrice.String(), p.CurrentPrice.String(), p.NetShares.String(),
			p.TotalBought.String(), p.LastBuyTime,
		)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: insert snapshot row: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close snapshot batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit snapshot %s: %w", id, err)
	}
	return nil
}

// ListRecent returns snapshot headers (no rows) for a wallet, newest first.
func (s *SnapshotStore) ListRecent(ctx context.Context, wallet string, limit int) ([]domain.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, wallet, taken_at, total_pnl::text
		 FROM snapshots
		 WHERE wallet = $1
		 ORDER BY taken_at DESC
		 LIMIT $2`,
		wallet, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots for %s: %w", wallet, err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		var totalPnL string
		if err := rows.Scan(&snap.ID, &snap.Wallet, &snap.TakenAt, &totalPnL); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		snap.TotalPnL, err = decimal.NewFromString(totalPnL)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse total_pnl %q: %w", totalPnL, err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshots for %s: %w", wallet, err)
	}
	return snaps, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
