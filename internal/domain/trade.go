package domain

import "time"

// Trade is an executed (simulated) fill recorded by the paper ledger.
type Trade struct {
	ID            string
	OrderID       string
	MarketID      string
	TokenID       string
	Side          Side
	Outcome       Outcome
	Price         float64
	Size          float64
	Cost          float64 // price * size
	Module        string
	PairedTradeID string
	ExecutedAt    time.Time
}
