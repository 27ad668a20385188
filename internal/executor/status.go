package executor

import (
	"fmt"
	"math"
	"strings"
)

const statusWidth = 40

// FormatStatus renders a snapshot as the console account box.
func FormatStatus(s Snapshot) string {
	sign := "+"
	pnl, pnlPct := s.PnL, s.PnLPct
	if pnl < 0 {
		sign = "-"
		pnl, pnlPct = math.Abs(pnl), math.Abs(pnlPct)
	}
	rows := []string{
		"PAPER TRADING ACCOUNT",
		"",
		fmt.Sprintf("Balance:     $%.2f", s.Balance),
		fmt.Sprintf("Positions:   %d ($%.2f)", len(s.Positions), s.PositionsValue),
		fmt.Sprintf("Total value: $%.2f", s.TotalValue),
		fmt.Sprintf("P&L:         %s$%.2f (%s%.2f%%)", sign, pnl, sign, pnlPct*100),
		fmt.Sprintf("Trades:      %d", len(s.Trades)),
	}

	var b strings.Builder
	b.WriteString("╔" + strings.Repeat("═", statusWidth+2) + "╗\n")
	for _, r := range rows {
		pad := statusWidth - len([]rune(r))
		if pad < 0 {
			pad = 0
		}
		b.WriteString("║ " + r + strings.Repeat(" ", pad) + " ║\n")
	}
	b.WriteString("╚" + strings.Repeat("═", statusWidth+2) + "╝")
	return b.String()
}
