package domain

import "time"

// Market is a binary prediction market with its YES/NO token pair and the
// last observed price of each side. Prices are probability-like values in
// [0,1]; anything <= 0 means the source returned no usable quote.
type Market struct {
	ID          string
	ConditionID string
	Question    string
	Slug        string
	YesToken    string
	NoToken     string
	YesPrice    float64
	NoPrice     float64
	Volume24h   float64
	Liquidity   float64
	Active      bool
	Category    string
	EndDate     *time.Time
	UpdatedAt   time.Time
}

// SpreadSum is the combined cost of one YES and one NO share.
func (m Market) SpreadSum() float64 {
	return m.YesPrice + m.NoPrice
}

// ArbitrageSpread is the guaranteed payout (1.0) minus the spread sum.
func (m Market) ArbitrageSpread() float64 {
	return 1.0 - m.SpreadSum()
}

// HasArbitrage reports whether buying both sides costs less than the payout.
func (m Market) HasArbitrage() bool {
	return m.PricesUsable() && m.SpreadSum() < 1.0
}

// PricesUsable reports whether both sides carry a real quote.
func (m Market) PricesUsable() bool {
	return m.YesPrice > 0 && m.NoPrice > 0
}

// TokenFor returns the token id that backs the given outcome.
func (m Market) TokenFor(o Outcome) string {
	if o == OutcomeNo {
		return m.NoToken
	}
	return m.YesToken
}

// PricePair holds freshly fetched mid-prices for both outcome tokens.
// A zero field means that side could not be priced.
type PricePair struct {
	Yes float64
	No  float64
}
