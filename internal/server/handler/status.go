package handler

import (
	"net/http"

	"github.com/alanyoungcy/polyarb/internal/engine"
	"github.com/alanyoungcy/polyarb/internal/executor"
)

// AccountView exposes a read-only copy of the paper account.
type AccountView interface {
	Snapshot() executor.Snapshot
}

// SessionView exposes the engine counters.
type SessionView interface {
	Stats() engine.Stats
}

// StatusHandler serves the session and account summary.
type StatusHandler struct {
	account AccountView
	session SessionView
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(account AccountView, session SessionView) *StatusHandler {
	return &StatusHandler{account: account, session: session}
}

// GetStatus responds with mode, scan counters and account totals.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.session.Stats()
	snap := h.account.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":            stats.Mode,
		"scans":           stats.Scans,
		"opportunities":   stats.Opportunities,
		"initial_balance": snap.InitialBalance,
		"balance":         snap.Balance,
		"positions_value": snap.PositionsValue,
		"total_value":     snap.TotalValue,
		"pnl":             snap.PnL,
		"pnl_pct":         snap.PnLPct,
		"positions":       len(snap.Positions),
		"trades":          len(snap.Trades),
	})
}
