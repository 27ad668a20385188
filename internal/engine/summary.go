package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Stats is a point-in-time view of the session counters.
type Stats struct {
	Mode          string
	Scans         int
	Opportunities int
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{Mode: e.cfg.Mode, Scans: e.scans, Opportunities: e.found}
}

// RecentOpportunities returns up to limit opportunities, newest first.
func (e *Engine) RecentOpportunities(limit int) []domain.ArbitrageOpportunity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.journal)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.ArbitrageOpportunity, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, e.journal[i])
	}
	return out
}

// ListRecent serves the in-memory journal to readers that expect an
// opportunity store.
func (e *Engine) ListRecent(_ context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	return e.RecentOpportunities(limit), nil
}

// Summary builds the session summary as of now.
func (e *Engine) Summary() domain.SessionSummary {
	e.mu.RLock()
	s := domain.SessionSummary{
		StartedAt:     e.startedAt,
		EndedAt:       e.now().UTC(),
		Scans:         e.scans,
		Opportunities: e.found,
	}
	e.mu.RUnlock()

	snap := e.ledger.Snapshot()
	s.FinalPnL = snap.PnL
	s.FinalPnLPct = snap.PnLPct
	s.TradeCount = len(snap.Trades)
	s.TotalValue = snap.TotalValue
	return s
}

// FormatSummary renders the closing console block. P&L lines are only shown
// in paper mode.
func FormatSummary(s domain.SessionSummary, paper bool) string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder
	b.WriteString("\n" + rule + "\n")
	b.WriteString("SESSION SUMMARY\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Total scans: %d\n", s.Scans)
	fmt.Fprintf(&b, "Opportunities found: %d\n", s.Opportunities)
	if paper {
		sign := "+"
		pnl, pct := s.FinalPnL, s.FinalPnLPct
		if pnl < 0 {
			sign = "-"
			pnl, pct = math.Abs(pnl), math.Abs(pct)
		}
		fmt.Fprintf(&b, "Final P&L: %s$%.2f (%s%.2f%%)\n", sign, pnl, sign, pct*100)
		fmt.Fprintf(&b, "Trades executed: %d\n", s.TradeCount)
	}
	b.WriteString(rule)
	return b.String()
}

// Shutdown prints the summary, archives and reports the session, then runs
// the registered closers. Only the first call does anything.
func (e *Engine) Shutdown(ctx context.Context) {
	e.shutdownOnce.Do(func() {
		defer func() {
			for i := len(e.closers) - 1; i >= 0; i-- {
				e.closers[i]()
			}
		}()

		summary := e.Summary()
		fmt.Fprintln(e.out, FormatSummary(summary, e.cfg.Mode == ModePaper))

		if e.archiver != nil {
			path, err := e.archiver.ArchiveSession(ctx, summary, e.ledger.Trades(), e.RecentOpportunities(0))
			if err != nil {
				e.logger.WarnContext(ctx, "archive session failed", slog.String("error", err.Error()))
			} else {
				e.logger.InfoContext(ctx, "session archived", slog.String("path", path))
			}
		}
		if e.audit != nil {
			err := e.audit.Log(ctx, "session_summary", map[string]any{
				"scans":         summary.Scans,
				"opportunities": summary.Opportunities,
				"trades":        summary.TradeCount,
				"final_pnl":     summary.FinalPnL,
			})
			if err != nil {
				e.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
			}
		}
		if err := e.notifier.SessionSummary(ctx, summary); err != nil {
			e.logger.WarnContext(ctx, "notify summary failed", slog.String("error", err.Error()))
		}

		e.logger.InfoContext(ctx, "session finished",
			slog.Int("scans", summary.Scans),
			slog.Int("opportunities", summary.Opportunities),
			slog.Int("trades", summary.TradeCount),
			slog.Float64("final_pnl", summary.FinalPnL),
		)
	})
}
