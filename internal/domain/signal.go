package domain

import "time"

// Side is the direction of an order or trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Outcome identifies which token of a binary market is traded.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Opposite returns the complementary outcome.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// SignalUrgency indicates how quickly a signal should be acted upon.
type SignalUrgency string

const (
	SignalUrgencyImmediate SignalUrgency = "immediate"
	SignalUrgencyNormal    SignalUrgency = "normal"
	SignalUrgencyLow       SignalUrgency = "low"
)

// Signal is a trade suggestion emitted by a detector module.
type Signal struct {
	ID             string
	Module         string
	MarketID       string
	TokenID        string
	Side           Side
	Outcome        Outcome
	Confidence     float64 // [0,1]
	ExpectedValue  float64 // USD
	SizeSuggestion float64 // USD
	Urgency        SignalUrgency
	Metadata       map[string]string
	CreatedAt      time.Time
}

// SessionSummary is reported once when a run ends.
type SessionSummary struct {
	StartedAt     time.Time
	EndedAt       time.Time
	Scans         int
	Opportunities int
	FinalPnL      float64
	FinalPnLPct   float64
	TradeCount    int
	TotalValue    float64
}
