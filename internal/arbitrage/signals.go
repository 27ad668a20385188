package arbitrage

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// GenerateSignals emits a buy-YES and a buy-NO signal per opportunity. The
// expected value and size of the pair are split evenly between the legs.
func (d *Detector) GenerateSignals(opps []domain.ArbitrageOpportunity) []domain.Signal {
	signals := make([]domain.Signal, 0, 2*len(opps))
	for _, opp := range opps {
		var shares float64
		if opp.TotalCost > 0 {
			shares = opp.SuggestedSize / opp.TotalCost
		}
		ev := opp.Profit * shares / 2
		size := opp.SuggestedSize / 2

		for _, outcome := range []domain.Outcome{domain.OutcomeYes, domain.OutcomeNo} {
			signals = append(signals, domain.Signal{
				ID:             uuid.New().String(),
				Module:         Module,
				MarketID:       opp.Market.ID,
				TokenID:        opp.Market.TokenFor(outcome),
				Side:           domain.SideBuy,
				Outcome:        outcome,
				Confidence:     1.0,
				ExpectedValue:  ev,
				SizeSuggestion: size,
				Urgency:        domain.SignalUrgencyImmediate,
				Metadata: map[string]string{
					"type":           "arbitrage",
					"opportunity_id": opp.ID,
					"pair_token":     opp.Market.TokenFor(outcome.Opposite()),
					"total_cost":     strconv.FormatFloat(opp.TotalCost, 'f', -1, 64),
					"profit_pct":     strconv.FormatFloat(opp.ProfitPct, 'f', -1, 64),
				},
				CreatedAt: d.now(),
			})
		}
	}
	return signals
}
