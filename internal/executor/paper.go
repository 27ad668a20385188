// Package executor simulates order execution against a paper ledger.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Module is stamped on every trade produced by the paper ledger.
const Module = "paper"

// TradeRecorder receives trades after they have been committed to the
// ledger. A recorder error never undoes a fill.
type TradeRecorder interface {
	RecordTrades(ctx context.Context, trades []domain.Trade) error
}

// Executor fills orders against an in-memory paper account. Every mutation
// happens under a single mutex, so balance and positions stay consistent
// even when status readers run concurrently.
type Executor struct {
	mu   sync.Mutex
	acct *account

	recorders []TradeRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewPaperExecutor creates an Executor with the given starting balance.
func NewPaperExecutor(initialBalance float64, logger *slog.Logger) *Executor {
	return &Executor{
		acct:   newAccount(initialBalance),
		logger: logger.With(slog.String("component", "paper_executor")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddRecorder registers a sink that is handed every committed trade.
func (e *Executor) AddRecorder(r TradeRecorder) {
	if r == nil {
		return
	}
	e.mu.Lock()
	e.recorders = append(e.recorders, r)
	e.mu.Unlock()
}

func executionID() string {
	return uuid.New().String()[:8]
}

// reservation is what earlier legs of the same request have earmarked:
// buy notional against the balance and sell shares against each holding.
type reservation struct {
	notional decimal.Decimal
	shares   map[string]decimal.Decimal // token id -> shares
}

func (r *reservation) add(o domain.Order) {
	size := decimal.NewFromFloat(o.Size)
	if o.Side == domain.SideBuy {
		r.notional = r.notional.Add(decimal.NewFromFloat(o.Price).Mul(size))
		return
	}
	if r.shares == nil {
		r.shares = make(map[string]decimal.Decimal)
	}
	r.shares[o.TokenID] = r.shares[o.TokenID].Add(size)
}

// check validates o against the ledger minus r without mutating either.
func (e *Executor) check(o domain.Order, r reservation) error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: order already %s", domain.ErrInvalidOrder, o.Status)
	}
	if o.Price <= 0 || o.Size <= 0 || o.TokenID == "" {
		return domain.ErrInvalidOrder
	}

	switch o.Side {
	case domain.SideBuy:
		cost := decimal.NewFromFloat(o.Price).Mul(decimal.NewFromFloat(o.Size))
		if cost.Add(r.notional).GreaterThan(e.acct.balance) {
			return domain.ErrInsufficientBalance
		}
	case domain.SideSell:
		free := e.acct.heldShares(o.TokenID).Sub(r.shares[o.TokenID])
		if free.LessThan(decimal.NewFromFloat(o.Size)) {
			return domain.ErrInsufficientPosition
		}
	default:
		return fmt.Errorf("%w: side %q", domain.ErrInvalidOrder, o.Side)
	}
	return nil
}

// commit applies a checked order and returns the filled order and its trade.
func (e *Executor) commit(o domain.Order) (domain.Order, domain.Trade) {
	if o.Side == domain.SideBuy {
		e.acct.buy(o)
	} else {
		e.acct.sell(o)
	}

	ts := e.now()
	o.Status = domain.OrderStatusFilled
	o.FilledSize = o.Size
	o.FilledPrice = o.Price
	o.ExecutedAt = &ts

	trade := domain.Trade{
		ID:         uuid.New().String(),
		OrderID:    o.ID,
		MarketID:   o.MarketID,
		TokenID:    o.TokenID,
		Side:       o.Side,
		Outcome:    o.Outcome,
		Price:      o.Price,
		Size:       o.Size,
		Cost:       decimal.NewFromFloat(o.Price).Mul(decimal.NewFromFloat(o.Size)).InexactFloat64(),
		Module:     Module,
		ExecutedAt: ts,
	}
	e.acct.trades = append(e.acct.trades, trade)
	return o, trade
}

func reject(o domain.Order, err error) domain.Order {
	o.Status = domain.OrderStatusFailed
	o.Reason = err.Error()
	return o
}

// ExecuteOrder fills o against the ledger or rejects it. A rejected order
// comes back with status failed and leaves the ledger untouched.
func (e *Executor) ExecuteOrder(ctx context.Context, o domain.Order) domain.Order {
	e.mu.Lock()
	o.ID = executionID()
	if err := e.check(o, reservation{}); err != nil {
		e.mu.Unlock()
		e.logger.WarnContext(ctx, "paper order rejected",
			slog.String("order_id", o.ID),
			slog.String("token_id", o.TokenID),
			slog.String("side", string(o.Side)),
			slog.String("reason", err.Error()),
		)
		return reject(o, err)
	}
	filled, trade := e.commit(o)
	recorders := e.recorders
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "paper order filled",
		slog.String("order_id", filled.ID),
		slog.String("side", string(filled.Side)),
		slog.String("outcome", string(filled.Outcome)),
		slog.Float64("price", filled.FilledPrice),
		slog.Float64("size", filled.FilledSize),
	)
	e.record(ctx, recorders, []domain.Trade{trade})
	return filled
}

// ErrPairedLegRejected is the reason given to a leg that passed its own
// check but was dropped because the other leg failed.
var ErrPairedLegRejected = errors.New("paired leg rejected")

// ExecuteArbitragePair fills both legs of an arbitrage or neither. The second
// leg is checked against the ledger minus what the first leg reserves, and
// both are committed inside the same critical section, so the account never
// holds only one side of the pair.
func (e *Executor) ExecuteArbitragePair(ctx context.Context, yes, no domain.Order) (domain.Order, domain.Order) {
	yesOut, noOut, trades, recorders := e.executePair(yes, no)
	if len(trades) == 0 {
		e.logger.WarnContext(ctx, "arbitrage pair rejected",
			slog.String("market_id", yes.MarketID),
			slog.Float64("total_cost", yes.Notional()+no.Notional()),
			slog.String("yes_reason", yesOut.Reason),
			slog.String("no_reason", noOut.Reason),
		)
		return yesOut, noOut
	}

	totalCost := trades[0].Cost + trades[1].Cost
	payout := min(yesOut.FilledSize, noOut.FilledSize)
	e.logger.InfoContext(ctx, "arbitrage pair executed",
		slog.String("market_id", yes.MarketID),
		slog.Float64("total_cost", totalCost),
		slog.Float64("guaranteed_payout", payout),
		slog.Float64("locked_profit", payout-totalCost),
	)
	e.record(ctx, recorders, trades)
	return yesOut, noOut
}

// executePair checks and commits both legs under the lock. trades is empty
// when the pair was rejected.
func (e *Executor) executePair(yes, no domain.Order) (domain.Order, domain.Order, []domain.Trade, []TradeRecorder) {
	e.mu.Lock()
	defer e.mu.Unlock()

	yes.ID = executionID()
	no.ID = executionID()

	var r reservation
	yesErr := e.check(yes, r)
	if yesErr == nil {
		r.add(yes)
	}
	noErr := e.check(no, r)

	if yesErr != nil || noErr != nil {
		if yesErr == nil {
			yesErr = ErrPairedLegRejected
		}
		if noErr == nil {
			noErr = ErrPairedLegRejected
		}
		return reject(yes, yesErr), reject(no, noErr), nil, nil
	}

	yesFilled, yesTrade := e.commit(yes)
	noFilled, noTrade := e.commit(no)

	n := len(e.acct.trades)
	e.acct.trades[n-2].PairedTradeID = noTrade.ID
	e.acct.trades[n-1].PairedTradeID = yesTrade.ID
	yesTrade.PairedTradeID = noTrade.ID
	noTrade.PairedTradeID = yesTrade.ID
	return yesFilled, noFilled, []domain.Trade{yesTrade, noTrade}, e.recorders
}

func (e *Executor) record(ctx context.Context, recorders []TradeRecorder, trades []domain.Trade) {
	for _, r := range recorders {
		if err := r.RecordTrades(ctx, trades); err != nil {
			e.logger.WarnContext(ctx, "trade recorder failed",
				slog.Int("trades", len(trades)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Snapshot returns a copy of the account state.
func (e *Executor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct.snapshot()
}

// Trades returns a copy of the trade history in execution order.
func (e *Executor) Trades() []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Trade, len(e.acct.trades))
	copy(out, e.acct.trades)
	return out
}

// Status renders the account summary box.
func (e *Executor) Status() string {
	return FormatStatus(e.Snapshot())
}
