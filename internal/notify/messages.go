package notify

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// ArbitrageExecuted reports a filled paper pair.
func (n *Notifier) ArbitrageExecuted(ctx context.Context, opp domain.ArbitrageOpportunity, yes, no domain.Order) error {
	msg := fmt.Sprintf("%s\nYES %.2f @ %.4f | NO %.2f @ %.4f\nCost $%.2f | Profit %.2f%%",
		opp.Market.Question,
		yes.FilledSize, yes.FilledPrice,
		no.FilledSize, no.FilledPrice,
		yes.Notional()+no.Notional(),
		opp.ProfitPct*100,
	)
	return n.Notify(ctx, EventArbitrageExecuted, "Arbitrage executed", msg)
}

// ArbitrageRejected reports a pair the ledger refused.
func (n *Notifier) ArbitrageRejected(ctx context.Context, opp domain.ArbitrageOpportunity, reason string) error {
	msg := fmt.Sprintf("%s\nSuggested $%.2f | %s", opp.Market.Question, opp.SuggestedSize, reason)
	return n.Notify(ctx, EventArbitrageRejected, "Arbitrage rejected", msg)
}

// OpportunityFound reports a detected opportunity.
func (n *Notifier) OpportunityFound(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	msg := fmt.Sprintf("%s\nYES %.4f + NO %.4f = %.4f | Profit %.2f%%",
		opp.Market.Question, opp.YesPrice, opp.NoPrice, opp.TotalCost, opp.ProfitPct*100)
	return n.Notify(ctx, EventOpportunityFound, "Arbitrage found", msg)
}

// SessionSummary reports the end-of-run totals.
func (n *Notifier) SessionSummary(ctx context.Context, s domain.SessionSummary) error {
	msg := fmt.Sprintf("Scans: %d\nOpportunities: %d\nTrades: %d\nFinal P&L: $%.2f (%.2f%%)",
		s.Scans, s.Opportunities, s.TradeCount, s.FinalPnL, s.FinalPnLPct*100)
	return n.Notify(ctx, EventSessionSummary, "Session summary", msg)
}
