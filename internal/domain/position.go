package domain

// Position is the paper inventory held in a single outcome token.
type Position struct {
	MarketID     string
	TokenID      string
	Outcome      Outcome
	Shares       float64
	AvgPrice     float64
	CurrentPrice float64
}

// CostBasis is shares times the average entry price.
func (p Position) CostBasis() float64 {
	return p.Shares * p.AvgPrice
}

// CurrentValue is shares marked at the current price.
func (p Position) CurrentValue() float64 {
	return p.Shares * p.CurrentPrice
}

// UnrealizedPnL is current value minus cost basis.
func (p Position) UnrealizedPnL() float64 {
	return p.CurrentValue() - p.CostBasis()
}

// PnLPct is unrealized P&L over cost basis, 0 when nothing was paid.
func (p Position) PnLPct() float64 {
	cb := p.CostBasis()
	if cb == 0 {
		return 0
	}
	return p.UnrealizedPnL() / cb
}
