// Package service orchestrates the upstream Polymarket clients and the
// ledger core into the account-level operations the presentation layers
// consume.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/poiselabs/poise/internal/domain"
	"github.com/poiselabs/poise/internal/ledger"
)

// FillSource provides authenticated account data from the CLOB API.
type FillSource interface {
	GetTrades(ctx context.Context) ([]domain.Trade, error)
	GetBalanceAllowance(ctx context.Context) (decimal.Decimal, error)
}

// ActivitySource provides the account activity log from the data API.
type ActivitySource interface {
	GetActivity(ctx context.Context, user string, limit int) ([]domain.Activity, error)
}

// AccountConfig carries the per-wallet settings the service needs.
type AccountConfig struct {
	// Wallet is the proxy wallet address whose activity is reconciled.
	Wallet string

	// ActivityLimit caps how many activity rows one reconciliation reads.
	ActivityLimit int

	// LastTrades is the default size of the recent-fills view.
	LastTrades int

	// Location is the time zone daily PnL buckets are keyed in.
	Location *time.Location

	// Ledger holds the dust threshold and settled-status set.
	Ledger ledger.Options
}

// AccountService reconciles one wallet's CLOB fills and data-api activity
// into realized PnL, trade groups, and open positions.
type AccountService struct {
	clob   FillSource
	data   ActivitySource
	prices *PriceService
	cfg    AccountConfig
	logger *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(clob FillSource, data ActivitySource, prices *PriceService, cfg AccountConfig, logger *slog.Logger) *AccountService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AccountService{
		clob:   clob,
		data:   data,
		prices: prices,
		cfg:    cfg,
		logger: logger,
	}
}

// Report is one full reconciliation pass over the account: every derived
// view computed from a single fetch of the raw feeds.
type Report struct {
	Wallet      string              `json:"wallet"`
	GeneratedAt time.Time           `json:"generated_at"`
	Balance     decimal.Decimal     `json:"balance"`
	UnitBet     decimal.Decimal     `json:"unit_bet"`
	TotalPnL    decimal.Decimal     `json:"total_pnl"`
	Daily       []domain.DailyPnL   `json:"daily_pnl"`
	Groups      []domain.TradeGroup `json:"trade_groups"`
	Positions   []domain.Position   `json:"positions"`
	LastTrades  []domain.Trade      `json:"last_trades"`
}

// Snapshot converts the report into its archival form.
func (r Report) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Wallet:    r.Wallet,
		TakenAt:   r.GeneratedAt,
		TotalPnL:  r.TotalPnL,
		Groups:    r.Groups,
		Daily:     r.Daily,
		Positions: r.Positions,
	}
}

// Balance returns the wallet's USDC collateral balance.
func (s *AccountService) Balance(ctx context.Context) (decimal.Decimal, error) {
	bal, err := s.clob.GetBalanceAllowance(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("account_service: balance: %w", err)
	}
	return bal, nil
}

// UnitBet returns the standard position size for the current balance.
func (s *AccountService) UnitBet(ctx context.Context) (decimal.Decimal, error) {
	bal, err := s.Balance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.UnitBet(bal), nil
}

// Trades returns the raw CLOB fills for the account.
func (s *AccountService) Trades(ctx context.Context) ([]domain.Trade, error) {
	trades, err := s.clob.GetTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("account_service: trades: %w", err)
	}
	return trades, nil
}

// LastTrades returns the n most recent settled fills, newest-first, enriched
// with market titles and categories. Enrichment failures degrade to empty
// metadata rather than failing the call. n <= 0 uses the configured default.
func (s *AccountService) LastTrades(ctx context.Context, n int) ([]domain.Trade, error) {
	if n <= 0 {
		n = s.cfg.LastTrades
	}
	trades, err := s.Trades(ctx)
	if err != nil {
		return nil, err
	}
	recent := ledger.LastSettled(trades, s.cfg.Ledger, n)
	return s.enrichTrades(ctx, recent), nil
}

// TradeGroups returns the per-(market, outcome) trade history with
// redemptions reconciled in.
func (s *AccountService) TradeGroups(ctx context.Context) ([]domain.TradeGroup, error) {
	acts, err := s.activity(ctx)
	if err != nil {
		return nil, err
	}
	return buildGroups(acts), nil
}

// OpenPositions returns the currently open positions marked with live
// prices and filtered for dust.
func (s *AccountService) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	acts, err := s.activity(ctx)
	if err != nil {
		return nil, err
	}
	lookup := s.positionLookup(ctx, acts)
	return ledger.OpenPositions(acts, lookup, s.cfg.Ledger), nil
}

// PnLSummary returns the daily realized PnL buckets and their total.
func (s *AccountService) PnLSummary(ctx context.Context) ([]domain.DailyPnL, decimal.Decimal, error) {
	acts, err := s.activity(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}
	daily := ledger.DailyPnL(ledger.TradesFromActivities(acts), s.cfg.Location)
	return daily, ledger.TotalPnL(daily), nil
}

// Activities returns the raw activity log rows for the account.
func (s *AccountService) Activities(ctx context.Context) ([]domain.Activity, error) {
	return s.activity(ctx)
}

// Reconcile performs one full pass: the raw feeds are fetched concurrently,
// then every derived view is computed from that single snapshot of inputs.
func (s *AccountService) Reconcile(ctx context.Context) (Report, error) {
	var (
		trades  []domain.Trade
		acts    []domain.Activity
		balance decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trades, err = s.clob.GetTrades(gctx)
		if err != nil {
			return fmt.Errorf("account_service: trades: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		acts, err = s.data.GetActivity(gctx, s.cfg.Wallet, s.cfg.ActivityLimit)
		if err != nil {
			return fmt.Errorf("account_service: activity: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		balance, err = s.clob.GetBalanceAllowance(gctx)
		if err != nil {
			return fmt.Errorf("account_service: balance: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	daily := ledger.DailyPnL(ledger.TradesFromActivities(acts), s.cfg.Location)
	recent := ledger.LastSettled(trades, s.cfg.Ledger, s.cfg.LastTrades)

	report := Report{
		Wallet:      s.cfg.Wallet,
		GeneratedAt: time.Now().UTC(),
		Balance:     balance,
		UnitBet:     ledger.UnitBet(balance),
		TotalPnL:    ledger.TotalPnL(daily),
		Daily:       daily,
		Groups:      buildGroups(acts),
		Positions:   ledger.OpenPositions(acts, s.positionLookup(ctx, acts), s.cfg.Ledger),
		LastTrades:  s.enrichTrades(ctx, recent),
	}

	s.logger.InfoContext(ctx, "account_service: reconciled",
		slog.String("wallet", s.cfg.Wallet),
		slog.Int("fills", len(trades)),
		slog.Int("activities", len(acts)),
		slog.Int("groups", len(report.Groups)),
		slog.Int("positions", len(report.Positions)),
	)

	return report, nil
}

func (s *AccountService) activity(ctx context.Context) ([]domain.Activity, error) {
	acts, err := s.data.GetActivity(ctx, s.cfg.Wallet, s.cfg.ActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("account_service: activity: %w", err)
	}
	return acts, nil
}

// buildGroups runs the grouping pass and reconciles redemptions in.
func buildGroups(acts []domain.Activity) []domain.TradeGroup {
	groups := ledger.GroupTrades(ledger.FillTrades(acts))
	return ledger.ApplyRedemptions(groups, acts)
}

// positionLookup pre-fetches metadata for every market seen in the activity
// log and returns the price lookup used to mark open positions.
func (s *AccountService) positionLookup(ctx context.Context, acts []domain.Activity) ledger.PriceLookup {
	markets := s.prices.MarketsFor(ctx, marketIDs(acts))
	return s.prices.Lookup(ctx, markets)
}

// enrichTrades attaches market titles and categories to fills. Markets that
// cannot be resolved leave the fill's metadata empty.
func (s *AccountService) enrichTrades(ctx context.Context, trades []domain.Trade) []domain.Trade {
	seen := make(map[string]bool, len(trades))
	ids := make([]string, 0, len(trades))
	for _, t := range trades {
		if t.Market == "" || seen[t.Market] {
			continue
		}
		seen[t.Market] = true
		ids = append(ids, t.Market)
	}
	markets := s.prices.MarketsFor(ctx, ids)

	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if info, ok := markets[t.Market]; ok {
			t = t.WithMarketInfo(info.Title, domain.CategoryFromSlug(info.Slug))
		}
		out = append(out, t)
	}
	return out
}

// marketIDs returns the distinct condition IDs in the activity log,
// first-seen order.
func marketIDs(acts []domain.Activity) []string {
	seen := make(map[string]bool, len(acts))
	var ids []string
	for _, a := range acts {
		if a.Market == "" || seen[a.Market] {
			continue
		}
		seen[a.Market] = true
		ids = append(ids, a.Market)
	}
	return ids
}
