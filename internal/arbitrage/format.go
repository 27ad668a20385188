package arbitrage

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const cardWidth = 64

// FormatOpportunity renders an opportunity as a boxed card for the console.
func FormatOpportunity(opp domain.ArbitrageOpportunity) string {
	lines := []string{
		"ARBITRAGE OPPORTUNITY",
		"",
		"Market: " + truncate(opp.Market.Question, 50),
		"",
		fmt.Sprintf("YES price:      $%.4f", opp.YesPrice),
		fmt.Sprintf("NO price:       $%.4f", opp.NoPrice),
		fmt.Sprintf("Total cost:     $%.4f", opp.TotalCost),
		"",
		fmt.Sprintf("Profit/share:   $%.4f", opp.Profit),
		fmt.Sprintf("Profit:         %.2f%%", opp.ProfitPct*100),
		fmt.Sprintf("Suggested size: $%.2f", opp.SuggestedSize),
		fmt.Sprintf("24h volume:     $%s", groupThousands(opp.Market.Volume24h)),
	}
	return box(lines)
}

// box draws a single-line frame around lines, padding each to cardWidth.
func box(lines []string) string {
	var b strings.Builder
	b.WriteString("┌" + strings.Repeat("─", cardWidth+2) + "┐\n")
	for _, l := range lines {
		pad := cardWidth - len([]rune(l))
		if pad < 0 {
			l = string([]rune(l)[:cardWidth])
			pad = 0
		}
		b.WriteString("│ " + l + strings.Repeat(" ", pad) + " │\n")
	}
	b.WriteString("└" + strings.Repeat("─", cardWidth+2) + "┘")
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// groupThousands formats v with no decimals and comma separators.
func groupThousands(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
