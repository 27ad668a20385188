package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/executor"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSource struct {
	markets []domain.Market
	calls   int
}

func (f *fakeSource) Scan(_ context.Context, _ float64, enrich bool) []domain.Market {
	f.calls++
	return f.markets
}

type fakeOppStore struct {
	mu       sync.Mutex
	inserted []domain.ArbitrageOpportunity
	executed []string
}

func (s *fakeOppStore) Insert(_ context.Context, opp domain.ArbitrageOpportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, opp)
	return nil
}

func (s *fakeOppStore) MarkExecuted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed = append(s.executed, id)
	return nil
}

func (s *fakeOppStore) ListRecent(context.Context, int) ([]domain.ArbitrageOpportunity, error) {
	return nil, nil
}

type fakeBus struct{ published int }

func (b *fakeBus) PublishOpportunity(context.Context, domain.ArbitrageOpportunity) error {
	b.published++
	return errors.New("redis down")
}
func (b *fakeBus) AppendTrade(context.Context, domain.Trade) error { return nil }
func (b *fakeBus) RecentTrades(context.Context, int) ([]domain.Trade, error) {
	return nil, nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type fakeArchiver struct {
	calls  int
	trades int
}

func (a *fakeArchiver) ArchiveSession(_ context.Context, _ domain.SessionSummary, trades []domain.Trade, _ []domain.ArbitrageOpportunity) (string, error) {
	a.calls++
	a.trades = len(trades)
	return "sessions/x", nil
}

type countingNotifier struct {
	nopNotifier
	executed, summaries int
}

func (n *countingNotifier) ArbitrageExecuted(context.Context, domain.ArbitrageOpportunity, domain.Order, domain.Order) error {
	n.executed++
	return nil
}

func (n *countingNotifier) SessionSummary(context.Context, domain.SessionSummary) error {
	n.summaries++
	return nil
}

func arbMarket(id string, yes, no float64) domain.Market {
	return domain.Market{
		ID:        id,
		Question:  "Will " + id + " happen?",
		YesToken:  id + "-yes",
		NoToken:   id + "-no",
		YesPrice:  yes,
		NoPrice:   no,
		Volume24h: 50000,
		Liquidity: 10000,
		Active:    true,
	}
}

func newTestEngine(t *testing.T, mode string, markets []domain.Market, opts ...Option) (*Engine, *fakeSource, *executor.Executor, *bytes.Buffer) {
	t.Helper()
	src := &fakeSource{markets: markets}
	det := arbitrage.NewDetector(arbitrage.DefaultConfig(), quietLogger())
	ledger := executor.NewPaperExecutor(1000, quietLogger())
	var out bytes.Buffer

	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.Interval = time.Hour
	e, err := New(cfg, src, det, ledger, quietLogger(), append([]Option{WithOutput(&out)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, src, ledger, &out
}

func TestNewRejectsLiveMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeLive
	_, err := New(cfg, &fakeSource{}, nil, nil, quietLogger())
	if !errors.Is(err, domain.ErrLiveTradingUnsupported) {
		t.Fatalf("err = %v, want ErrLiveTradingUnsupported", err)
	}

	cfg.Mode = "yolo"
	if _, err := New(cfg, &fakeSource{}, nil, nil, quietLogger()); err == nil {
		t.Fatal("unknown mode accepted")
	}
}

func TestScanOncePaperExecutesPair(t *testing.T) {
	store := &fakeOppStore{}
	bus := &fakeBus{}
	n := &countingNotifier{}
	e, _, ledger, out := newTestEngine(t, ModePaper,
		[]domain.Market{arbMarket("m1", 0.45, 0.50), arbMarket("flat", 0.50, 0.50)},
		WithOpportunityStore(store), WithEventBus(bus), WithNotifier(n))

	if got := e.ScanOnce(context.Background()); got != 1 {
		t.Fatalf("ScanOnce = %d, want 1", got)
	}
	if !strings.Contains(out.String(), "ARBITRAGE OPPORTUNITY") {
		t.Errorf("card not printed:\n%s", out.String())
	}

	trades := ledger.Trades()
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}
	if trades[0].Size != trades[1].Size {
		t.Errorf("legs differ in size: %v vs %v", trades[0].Size, trades[1].Size)
	}
	// 50 notional / 0.95 per pair = 52.63 shares per leg.
	if s := trades[0].Size; s < 52.63 || s > 52.64 {
		t.Errorf("shares per leg = %v", s)
	}

	if len(store.inserted) != 1 || len(store.executed) != 1 || store.executed[0] != store.inserted[0].ID {
		t.Errorf("store inserted=%d executed=%v", len(store.inserted), store.executed)
	}
	if bus.published != 1 {
		t.Errorf("published = %d, bus errors must not stop the cycle", bus.published)
	}
	if n.executed != 1 {
		t.Errorf("executed notifications = %d", n.executed)
	}
	if recent := e.RecentOpportunities(10); len(recent) != 1 || !recent[0].Executed {
		t.Errorf("journal = %+v", recent)
	}
}

func TestScanOnceScanModeDoesNotTrade(t *testing.T) {
	e, _, ledger, _ := newTestEngine(t, ModeScan, []domain.Market{arbMarket("m1", 0.45, 0.50)})
	if got := e.ScanOnce(context.Background()); got != 1 {
		t.Fatalf("ScanOnce = %d", got)
	}
	if n := len(ledger.Trades()); n != 0 {
		t.Fatalf("scan mode traded %d times", n)
	}
}

func TestScanOnceTopN(t *testing.T) {
	var markets []domain.Market
	for i := 0; i < 7; i++ {
		markets = append(markets, arbMarket(fmt.Sprintf("m%d", i), 0.45, 0.50))
	}
	e, _, ledger, out := newTestEngine(t, ModePaper, markets)

	if got := e.ScanOnce(context.Background()); got != 7 {
		t.Fatalf("ScanOnce = %d, want 7", got)
	}
	if cards := strings.Count(out.String(), "ARBITRAGE OPPORTUNITY"); cards != 5 {
		t.Errorf("cards = %d, want 5", cards)
	}
	if n := len(ledger.Trades()); n != 10 {
		t.Errorf("trades = %d, want 10", n)
	}
	if st := e.Stats(); st.Opportunities != 7 || st.Scans != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestScanOnceSkipsWhenLockHeld(t *testing.T) {
	e, src, _, _ := newTestEngine(t, ModePaper, []domain.Market{arbMarket("m1", 0.45, 0.50)},
		WithLockManager(heldLock{}))
	if got := e.ScanOnce(context.Background()); got != 0 {
		t.Fatalf("ScanOnce = %d", got)
	}
	if src.calls != 0 {
		t.Error("scanned without the cycle lock")
	}
}

func TestCooldownBlocksReentry(t *testing.T) {
	e, _, ledger, _ := newTestEngine(t, ModePaper, []domain.Market{arbMarket("m1", 0.45, 0.50)},
		WithCooldown(time.Hour))
	e.ScanOnce(context.Background())
	e.ScanOnce(context.Background())
	if n := len(ledger.Trades()); n != 2 {
		t.Fatalf("trades = %d, want one pair", n)
	}
}

func TestRunOnceShutsDownOnce(t *testing.T) {
	arch := &fakeArchiver{}
	n := &countingNotifier{}
	closed := 0
	e, _, _, out := newTestEngine(t, ModePaper, []domain.Market{arbMarket("m1", 0.45, 0.50)},
		WithArchiver(arch), WithNotifier(n), WithCloser(func() { closed++ }))

	if err := e.Run(context.Background(), true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	e.Shutdown(context.Background())

	if arch.calls != 1 || arch.trades != 2 {
		t.Errorf("archiver calls=%d trades=%d", arch.calls, arch.trades)
	}
	if closed != 1 || n.summaries != 1 {
		t.Errorf("closed=%d summaries=%d", closed, n.summaries)
	}
	text := out.String()
	if strings.Count(text, "SESSION SUMMARY") != 1 {
		t.Errorf("summary printed %d times", strings.Count(text, "SESSION SUMMARY"))
	}
	for _, want := range []string{"Total scans: 1", "Opportunities found: 1", "Trades executed: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestRunFinishesCycleBeforeHonouringCancel(t *testing.T) {
	e, src, _, out := newTestEngine(t, ModePaper, []domain.Market{arbMarket("m1", 0.45, 0.50)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.Run(ctx, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("cycles = %d, want 1", src.calls)
	}
	if !strings.Contains(out.String(), "PAPER TRADING ACCOUNT") {
		t.Error("status not printed after cycle")
	}
}

func TestFormatSummary(t *testing.T) {
	s := domain.SessionSummary{Scans: 3, Opportunities: 2, FinalPnL: -1.5, FinalPnLPct: -0.0015, TradeCount: 4}
	got := FormatSummary(s, true)
	if !strings.Contains(got, "Final P&L: -$1.50 (-0.15%)") {
		t.Errorf("paper summary:\n%s", got)
	}
	if strings.Contains(FormatSummary(s, false), "Final P&L") {
		t.Error("scan-mode summary shows P&L")
	}
}
