package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/domain"
	"github.com/poiselabs/poise/internal/ledger"
)

// AccountAPI defines the account operations the handlers expose.
type AccountAPI interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	LastTrades(ctx context.Context, n int) ([]domain.Trade, error)
	TradeGroups(ctx context.Context) ([]domain.TradeGroup, error)
	OpenPositions(ctx context.Context) ([]domain.Position, error)
	PnLSummary(ctx context.Context) ([]domain.DailyPnL, decimal.Decimal, error)
}

// AccountHandler serves the account tracking endpoints.
type AccountHandler struct {
	account AccountAPI
	logger  *slog.Logger
}

// NewAccountHandler creates an AccountHandler with the given service and logger.
func NewAccountHandler(account AccountAPI, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		account: account,
		logger:  logger,
	}
}

// balanceResponse wraps the balance endpoint payload.
type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
	UnitBet decimal.Decimal `json:"unit_bet"`
}

// GetBalance returns the wallet's USDC balance and standard bet size.
// GET /api/balance
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.account.Balance(r.Context())
	if err != nil {
		h.fail(w, r, "balance", err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Balance: balance,
		UnitBet: ledger.UnitBet(balance),
	})
}

// listTradesResponse wraps the trades endpoint payload.
type listTradesResponse struct {
	Trades []domain.Trade `json:"trades"`
}

// ListTrades returns recent settled fills, newest first.
// GET /api/trades?limit=20
func (h *AccountHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 0, 200)

	trades, err := h.account.LastTrades(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "list trades", err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}

	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades})
}

// listGroupsResponse wraps the trade-groups endpoint payload.
type listGroupsResponse struct {
	Groups []domain.TradeGroup `json:"trade_groups"`
}

// ListTradeGroups returns the per-(market, outcome) trade history with
// redemptions reconciled in.
// GET /api/trade-groups
func (h *AccountHandler) ListTradeGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.account.TradeGroups(r.Context())
	if err != nil {
		h.fail(w, r, "list trade groups", err)
		return
	}
	if groups == nil {
		groups = []domain.TradeGroup{}
	}

	writeJSON(w, http.StatusOK, listGroupsResponse{Groups: groups})
}

// listPositionsResponse wraps the positions endpoint payload.
type listPositionsResponse struct {
	Positions []domain.Position `json:"positions"`
}

// ListPositions returns the currently open positions with live marks.
// GET /api/positions
func (h *AccountHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.account.OpenPositions(r.Context())
	if err != nil {
		h.fail(w, r, "list positions", err)
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}

	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}

// pnlResponse wraps the pnl endpoint payload.
type pnlResponse struct {
	Total decimal.Decimal   `json:"total"`
	Daily []domain.DailyPnL `json:"daily"`
}

// GetPnL returns the daily realized PnL buckets and their total.
// GET /api/pnl
func (h *AccountHandler) GetPnL(w http.ResponseWriter, r *http.Request) {
	daily, total, err := h.account.PnLSummary(r.Context())
	if err != nil {
		h.fail(w, r, "pnl summary", err)
		return
	}
	if daily == nil {
		daily = []domain.DailyPnL{}
	}

	writeJSON(w, http.StatusOK, pnlResponse{Total: total, Daily: daily})
}

// fail logs the handler error and writes the mapped status code.
func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
		slog.String("error", err.Error()),
	)
	writeError(w, statusFor(err), op+" failed")
}

// statusFor maps upstream sentinel errors to HTTP status codes. Anything
// unrecognized is a bad gateway since every account operation proxies an
// upstream API.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
