package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func newTestExecutor(balance float64) *Executor {
	return NewPaperExecutor(balance, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func buy(token string, price, size float64) domain.Order {
	return domain.NewLimitOrder("m1", token, domain.SideBuy, domain.OutcomeYes, price, size)
}

func sell(token string, price, size float64) domain.Order {
	return domain.NewLimitOrder("m1", token, domain.SideSell, domain.OutcomeYes, price, size)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBuyRejectedOnInsufficientBalance(t *testing.T) {
	e := newTestExecutor(40)
	got := e.ExecuteOrder(context.Background(), buy("y", 0.45, 100))

	if got.Status != domain.OrderStatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ID == "" || len(got.ID) != 8 {
		t.Errorf("execution id = %q", got.ID)
	}
	if !strings.Contains(got.Reason, domain.ErrInsufficientBalance.Error()) {
		t.Errorf("reason = %q", got.Reason)
	}
	s := e.Snapshot()
	if s.Balance != 40 || len(s.Positions) != 0 || len(s.Trades) != 0 {
		t.Errorf("ledger mutated: %+v", s)
	}
}

func TestBuysAverageIntoPosition(t *testing.T) {
	e := newTestExecutor(1000)
	ctx := context.Background()

	first := e.ExecuteOrder(ctx, buy("y", 0.40, 10))
	second := e.ExecuteOrder(ctx, buy("y", 0.60, 10))
	if !first.IsFilled() || !second.IsFilled() {
		t.Fatalf("statuses = %s/%s", first.Status, second.Status)
	}
	if second.FilledPrice != 0.60 || second.FilledSize != 10 || second.ExecutedAt == nil || second.FillPct() != 1 {
		t.Errorf("fill fields = %+v", second)
	}

	s := e.Snapshot()
	if len(s.Positions) != 1 {
		t.Fatalf("positions = %+v", s.Positions)
	}
	p := s.Positions[0]
	if p.Shares != 20 || p.AvgPrice != 0.50 {
		t.Errorf("position = %+v, want 20 shares @ 0.50", p)
	}
	if p.CurrentPrice != 0.60 {
		t.Errorf("current price = %v, want last fill", p.CurrentPrice)
	}
	if s.Balance != 990 {
		t.Errorf("balance = %v, want 990", s.Balance)
	}
	if len(s.Trades) != 2 || s.Trades[0].Module != Module || s.Trades[1].Cost != 6 {
		t.Errorf("trades = %+v", s.Trades)
	}
}

func TestSellRules(t *testing.T) {
	e := newTestExecutor(100)
	ctx := context.Background()

	if got := e.ExecuteOrder(ctx, sell("y", 0.5, 1)); got.Status != domain.OrderStatusFailed {
		t.Fatalf("sell without position = %s", got.Status)
	}

	e.ExecuteOrder(ctx, buy("y", 0.5, 10))
	if got := e.ExecuteOrder(ctx, sell("y", 0.5, 11)); got.Status != domain.OrderStatusFailed {
		t.Fatalf("oversell = %s", got.Status)
	}

	if got := e.ExecuteOrder(ctx, sell("y", 0.7, 4)); !got.IsFilled() {
		t.Fatalf("partial sell = %s", got.Status)
	}
	s := e.Snapshot()
	if s.Positions[0].Shares != 6 || !near(s.Balance, 100-5+2.8) {
		t.Errorf("after partial sell: %+v", s)
	}

	if got := e.ExecuteOrder(ctx, sell("y", 0.7, 6)); !got.IsFilled() {
		t.Fatalf("closing sell = %s", got.Status)
	}
	s = e.Snapshot()
	if len(s.Positions) != 0 {
		t.Errorf("position not deleted at zero shares: %+v", s.Positions)
	}
	if !near(s.Balance, 102) || !near(s.PnL, 2) || !near(s.PnLPct, 0.02) {
		t.Errorf("final = %+v", s)
	}
}

func TestInvalidOrdersRejected(t *testing.T) {
	e := newTestExecutor(100)
	ctx := context.Background()
	for name, o := range map[string]domain.Order{
		"zero size":   buy("y", 0.5, 0),
		"zero price":  buy("y", 0, 1),
		"no token":    buy("", 0.5, 1),
		"bad side":    {TokenID: "y", Side: "hold", Price: 0.5, Size: 1},
		"terminal":    {TokenID: "y", Side: domain.SideBuy, Price: 0.5, Size: 1, Status: domain.OrderStatusFilled},
	} {
		if got := e.ExecuteOrder(ctx, o); got.Status != domain.OrderStatusFailed {
			t.Errorf("%s: status = %s", name, got.Status)
		}
	}
	if s := e.Snapshot(); s.Balance != 100 || len(s.Trades) != 0 {
		t.Errorf("ledger mutated: %+v", s)
	}
}

func TestConservationAfterMixedTrades(t *testing.T) {
	e := newTestExecutor(500)
	ctx := context.Background()
	orders := []domain.Order{
		buy("a", 0.31, 17), buy("b", 0.62, 9), sell("a", 0.35, 5),
		buy("a", 0.29, 3), sell("b", 0.58, 9), buy("c", 0.77, 1000),
	}
	for _, o := range orders {
		e.ExecuteOrder(ctx, o)
	}

	s := e.Snapshot()
	var sum float64
	for _, p := range s.Positions {
		sum += p.CurrentValue()
	}
	if !near(s.Balance+sum, s.TotalValue) {
		t.Errorf("balance %v + positions %v != total %v", s.Balance, sum, s.TotalValue)
	}
	if !near(s.TotalValue-s.InitialBalance, s.PnL) {
		t.Errorf("pnl %v != total-initial", s.PnL)
	}
	if s.Balance < 0 {
		t.Errorf("negative balance %v", s.Balance)
	}
	if len(s.Trades) != 5 {
		t.Errorf("trades = %d, want 5 (oversized buy rejected)", len(s.Trades))
	}
}

func pair(yesPrice, noPrice, shares float64) (domain.Order, domain.Order) {
	y := domain.NewLimitOrder("m1", "y", domain.SideBuy, domain.OutcomeYes, yesPrice, shares)
	n := domain.NewLimitOrder("m1", "n", domain.SideBuy, domain.OutcomeNo, noPrice, shares)
	return y, n
}

func TestArbitragePairFillsBothLegs(t *testing.T) {
	e := newTestExecutor(100)
	y, n := pair(0.45, 0.50, 50)

	gotY, gotN := e.ExecuteArbitragePair(context.Background(), y, n)
	if !gotY.IsFilled() || !gotN.IsFilled() {
		t.Fatalf("statuses = %s/%s", gotY.Status, gotN.Status)
	}
	s := e.Snapshot()
	if !near(s.Balance, 100-47.5) || len(s.Positions) != 2 {
		t.Fatalf("snapshot = %+v", s)
	}
	if len(s.Trades) != 2 || s.Trades[0].PairedTradeID != s.Trades[1].ID || s.Trades[1].PairedTradeID != s.Trades[0].ID {
		t.Errorf("trades not linked: %+v", s.Trades)
	}
}

func TestArbitragePairRejectsBothOnCombinedCost(t *testing.T) {
	// Each leg fits on its own, the pair does not.
	e := newTestExecutor(40)
	y, n := pair(0.45, 0.50, 50)

	gotY, gotN := e.ExecuteArbitragePair(context.Background(), y, n)
	if gotY.Status != domain.OrderStatusFailed || gotN.Status != domain.OrderStatusFailed {
		t.Fatalf("statuses = %s/%s", gotY.Status, gotN.Status)
	}
	if s := e.Snapshot(); s.Balance != 40 || len(s.Positions) != 0 || len(s.Trades) != 0 {
		t.Errorf("ledger mutated: %+v", s)
	}
}

func TestArbitragePairRejectsBothOnInvalidLeg(t *testing.T) {
	e := newTestExecutor(100)
	y, n := pair(0.45, 0.50, 10)
	n.TokenID = ""

	gotY, gotN := e.ExecuteArbitragePair(context.Background(), y, n)
	if gotY.IsFilled() || gotN.IsFilled() {
		t.Fatalf("statuses = %s/%s", gotY.Status, gotN.Status)
	}
	if s := e.Snapshot(); s.Balance != 100 {
		t.Errorf("balance = %v", s.Balance)
	}
}

func TestArbitragePairReservesSharesAcrossSellLegs(t *testing.T) {
	tests := []struct {
		name string
		held float64
	}{
		{"partial cover", 15},
		{"exact cover of one leg", 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestExecutor(100)
			ctx := context.Background()
			if got := e.ExecuteOrder(ctx, buy("t", 0.5, tc.held)); !got.IsFilled() {
				t.Fatalf("seed buy: %s %s", got.Status, got.Reason)
			}
			before := e.Snapshot()

			gotY, gotN := e.ExecuteArbitragePair(ctx, sell("t", 0.5, 10), sell("t", 0.5, 10))
			if gotY.IsFilled() || gotN.IsFilled() {
				t.Fatalf("statuses = %s/%s, want both failed", gotY.Status, gotN.Status)
			}
			if gotY.Reason != ErrPairedLegRejected.Error() {
				t.Errorf("yes reason = %q", gotY.Reason)
			}
			if gotN.Reason != domain.ErrInsufficientPosition.Error() {
				t.Errorf("no reason = %q", gotN.Reason)
			}

			after := e.Snapshot()
			if after.Balance != before.Balance || after.TotalValue != before.TotalValue {
				t.Errorf("ledger moved: balance %v -> %v, total %v -> %v",
					before.Balance, after.Balance, before.TotalValue, after.TotalValue)
			}
			if len(after.Positions) != 1 || after.Positions[0].Shares != tc.held {
				t.Errorf("positions = %+v", after.Positions)
			}

			// The ledger is still usable afterwards.
			if got := e.ExecuteOrder(ctx, sell("t", 0.5, 10)); !got.IsFilled() {
				t.Errorf("follow-up sell: %s %s", got.Status, got.Reason)
			}
		})
	}
}

func TestArbitragePairSellLegsWithinHolding(t *testing.T) {
	e := newTestExecutor(100)
	ctx := context.Background()
	e.ExecuteOrder(ctx, buy("t", 0.5, 20))

	gotY, gotN := e.ExecuteArbitragePair(ctx, sell("t", 0.5, 10), sell("t", 0.5, 10))
	if !gotY.IsFilled() || !gotN.IsFilled() {
		t.Fatalf("statuses = %s/%s", gotY.Status, gotN.Status)
	}
	s := e.Snapshot()
	if !near(s.Balance, 100) || len(s.Positions) != 0 || !near(s.TotalValue, 100) {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestArbitragePairReasonPerLeg(t *testing.T) {
	e := newTestExecutor(100)
	y, n := pair(0.45, 0.50, 10)
	n.TokenID = ""

	gotY, gotN := e.ExecuteArbitragePair(context.Background(), y, n)
	if gotY.Reason != ErrPairedLegRejected.Error() {
		t.Errorf("yes reason = %q", gotY.Reason)
	}
	if gotN.Reason != domain.ErrInvalidOrder.Error() {
		t.Errorf("no reason = %q", gotN.Reason)
	}
}

func TestSellWithoutHoldingIsNoop(t *testing.T) {
	a := newAccount(50)
	a.sell(sell("missing", 0.5, 10))
	if !a.balance.Equal(a.initial) || len(a.positions) != 0 {
		t.Errorf("balance = %s, positions = %d", a.balance, len(a.positions))
	}
}

func TestConcurrentPairsNeverSplit(t *testing.T) {
	e := newTestExecutor(100)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			y, n := pair(0.45, 0.50, 10) // 9.5 per pair
			e.ExecuteArbitragePair(context.Background(), y, n)
		}()
	}
	wg.Wait()

	s := e.Snapshot()
	if len(s.Trades) != 20 {
		t.Fatalf("trades = %d, want 10 pairs", len(s.Trades))
	}
	if s.Positions[0].Shares != s.Positions[1].Shares {
		t.Errorf("legs diverged: %+v", s.Positions)
	}
	if s.Balance < 0 || !near(s.Balance, 5) {
		t.Errorf("balance = %v, want 5", s.Balance)
	}
}

type recorderFunc func(context.Context, []domain.Trade) error

func (f recorderFunc) RecordTrades(ctx context.Context, t []domain.Trade) error { return f(ctx, t) }

func TestRecordersSeeCommittedTrades(t *testing.T) {
	e := newTestExecutor(100)
	var got [][]domain.Trade
	e.AddRecorder(recorderFunc(func(_ context.Context, t []domain.Trade) error {
		got = append(got, t)
		return errors.New("sink down")
	}))

	y, n := pair(0.4, 0.5, 10)
	e.ExecuteArbitragePair(context.Background(), y, n)
	e.ExecuteOrder(context.Background(), buy("z", 0.9, 1000))

	if len(got) != 1 || len(got[0]) != 2 || got[0][0].PairedTradeID != got[0][1].ID {
		t.Fatalf("recorded = %+v", got)
	}
	if len(e.Trades()) != 2 {
		t.Errorf("recorder failure undid fills")
	}
}

func TestStatusBox(t *testing.T) {
	e := newTestExecutor(1000)
	e.ExecuteOrder(context.Background(), buy("y", 0.5, 10))
	out := e.Status()
	for _, want := range []string{"$995.00", "Positions:   1 ($5.00)", "$1000.00", "+$0.00", "Trades:      1"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestZeroInitialBalancePnLPct(t *testing.T) {
	if s := newTestExecutor(0).Snapshot(); s.PnLPct != 0 {
		t.Fatalf("PnLPct = %v", s.PnLPct)
	}
}

func TestCooldown(t *testing.T) {
	c := NewCooldown(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if c.Active("m") {
		t.Fatal("unmarked key active")
	}
	c.Mark("m")
	if !c.Active("m") {
		t.Fatal("marked key inactive")
	}
	now = now.Add(time.Minute)
	if c.Active("m") {
		t.Fatal("expired key active")
	}

	off := NewCooldown(0)
	off.Mark("m")
	if off.Active("m") {
		t.Fatal("disabled cooldown active")
	}
}
