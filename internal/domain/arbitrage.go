package domain

import "time"

// ArbitrageOpportunity is a market snapshot whose YES+NO cost sits below the
// 1.0 payout by at least the configured profit ratio.
type ArbitrageOpportunity struct {
	ID            string
	Market        Market
	YesPrice      float64
	NoPrice       float64
	TotalCost     float64 // yes + no, per share pair
	Profit        float64 // 1 - TotalCost, per share pair
	ProfitPct     float64 // Profit / TotalCost
	MaxSize       float64 // USD notional bounded by capital
	SuggestedSize float64 // USD notional bounded by capital and liquidity
	DetectedAt    time.Time
	Executed      bool
}

// SuggestedShares converts the suggested notional into shares per leg.
func (o ArbitrageOpportunity) SuggestedShares() float64 {
	if o.TotalCost <= 0 {
		return 0
	}
	return o.SuggestedSize / o.TotalCost
}
