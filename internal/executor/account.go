package executor

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// holding is the decimal form of a position kept inside the account.
type holding struct {
	marketID     string
	tokenID      string
	outcome      domain.Outcome
	shares       decimal.Decimal
	avgPrice     decimal.Decimal
	currentPrice decimal.Decimal
}

func (h *holding) position() domain.Position {
	return domain.Position{
		MarketID:     h.marketID,
		TokenID:      h.tokenID,
		Outcome:      h.outcome,
		Shares:       h.shares.InexactFloat64(),
		AvgPrice:     h.avgPrice.InexactFloat64(),
		CurrentPrice: h.currentPrice.InexactFloat64(),
	}
}

// account is the paper ledger. It is not safe for concurrent use; the
// Executor serializes every access.
type account struct {
	initial   decimal.Decimal
	balance   decimal.Decimal
	positions map[string]*holding // token id -> holding
	order     []string            // token ids in first-opened order
	trades    []domain.Trade
}

func newAccount(initial float64) *account {
	d := decimal.NewFromFloat(initial)
	return &account{
		initial:   d,
		balance:   d,
		positions: make(map[string]*holding),
	}
}

func (a *account) positionsValue() decimal.Decimal {
	total := decimal.Zero
	for _, h := range a.positions {
		total = total.Add(h.shares.Mul(h.currentPrice))
	}
	return total
}

func (a *account) totalValue() decimal.Decimal {
	return a.balance.Add(a.positionsValue())
}

// buy debits cost and merges the shares into the holding at a size-weighted
// average price. The caller has already checked the balance.
func (a *account) buy(o domain.Order) {
	price := decimal.NewFromFloat(o.Price)
	size := decimal.NewFromFloat(o.Size)
	a.balance = a.balance.Sub(price.Mul(size))

	h, ok := a.positions[o.TokenID]
	if !ok {
		a.positions[o.TokenID] = &holding{
			marketID:     o.MarketID,
			tokenID:      o.TokenID,
			outcome:      o.Outcome,
			shares:       size,
			avgPrice:     price,
			currentPrice: price,
		}
		a.order = append(a.order, o.TokenID)
		return
	}

	shares := h.shares.Add(size)
	cost := h.shares.Mul(h.avgPrice).Add(size.Mul(price))
	h.avgPrice = cost.Div(shares)
	h.shares = shares
	h.currentPrice = price
}

// sell credits proceeds and reduces the holding, removing it at zero. The
// caller has already checked the held shares; a sell without a holding is a
// no-op.
func (a *account) sell(o domain.Order) {
	h, ok := a.positions[o.TokenID]
	if !ok {
		return
	}
	price := decimal.NewFromFloat(o.Price)
	size := decimal.NewFromFloat(o.Size)
	a.balance = a.balance.Add(price.Mul(size))
	h.shares = h.shares.Sub(size)
	h.currentPrice = price
	if h.shares.Sign() <= 0 {
		delete(a.positions, o.TokenID)
		for i, tok := range a.order {
			if tok == o.TokenID {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}
}

// heldShares returns the shares held in tokenID, zero without a position.
func (a *account) heldShares(tokenID string) decimal.Decimal {
	if h, ok := a.positions[tokenID]; ok {
		return h.shares
	}
	return decimal.Zero
}

// Snapshot is a point-in-time copy of the paper account.
type Snapshot struct {
	InitialBalance float64
	Balance        float64
	PositionsValue float64
	TotalValue     float64
	PnL            float64
	PnLPct         float64
	Positions      []domain.Position
	Trades         []domain.Trade
}

func (a *account) snapshot() Snapshot {
	total := a.totalValue()
	pnl := total.Sub(a.initial)
	var pnlPct float64
	if !a.initial.IsZero() {
		pnlPct = pnl.Div(a.initial).InexactFloat64()
	}

	positions := make([]domain.Position, 0, len(a.order))
	for _, tok := range a.order {
		positions = append(positions, a.positions[tok].position())
	}
	trades := make([]domain.Trade, len(a.trades))
	copy(trades, a.trades)

	return Snapshot{
		InitialBalance: a.initial.InexactFloat64(),
		Balance:        a.balance.InexactFloat64(),
		PositionsValue: a.positionsValue().InexactFloat64(),
		TotalValue:     total.InexactFloat64(),
		PnL:            pnl.InexactFloat64(),
		PnLPct:         pnlPct,
		Positions:      positions,
		Trades:         trades,
	}
}
