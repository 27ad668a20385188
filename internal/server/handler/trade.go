package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// TradeReader lists persisted trades. *postgres.TradeStore satisfies it.
type TradeReader interface {
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error)
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error)
}

// TradeHandler serves trade history. With a TradeReader it reads across
// sessions from the database, otherwise from the in-memory ledger.
type TradeHandler struct {
	store   TradeReader
	account AccountView
	logger  *slog.Logger
}

// NewTradeHandler creates a TradeHandler. store may be nil.
func NewTradeHandler(store TradeReader, account AccountView, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{store: store, account: account, logger: logger}
}

type listTradesResponse struct {
	Trades []tradeJSON `json:"trades"`
	Source string      `json:"source"`
}

// ListTrades returns trades newest first, optionally for one market.
// GET /api/trades?market=...&limit=50&offset=0
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	marketID := r.URL.Query().Get("market")

	if h.store == nil {
		trades := h.fromLedger(marketID, opts)
		writeJSON(w, http.StatusOK, listTradesResponse{Trades: mapSlice(trades, toTradeJSON), Source: "session"})
		return
	}

	var (
		trades []domain.Trade
		err    error
	)
	if marketID != "" {
		trades, err = h.store.ListByMarket(r.Context(), marketID, opts)
	} else {
		trades, err = h.store.ListRecent(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	writeJSON(w, http.StatusOK, listTradesResponse{Trades: mapSlice(trades, toTradeJSON), Source: "database"})
}

func (h *TradeHandler) fromLedger(marketID string, opts domain.ListOpts) []domain.Trade {
	all := h.account.Snapshot().Trades
	var out []domain.Trade
	skipped := 0
	for i := len(all) - 1; i >= 0; i-- {
		if marketID != "" && all[i].MarketID != marketID {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, all[i])
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out
}
