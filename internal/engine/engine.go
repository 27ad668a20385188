// Package engine drives the scan, detect and paper-execute cycle on a timer
// and produces the end-of-session summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/executor"
)

// Modes the engine can run in.
const (
	ModePaper = "paper" // detect and fill pairs against the paper ledger
	ModeScan  = "scan"  // detect and print only
	ModeLive  = "live"
)

// cycleLockKey guards one scan cycle across processes sharing a Redis.
const cycleLockKey = "engine:cycle"

// MarketSource produces the enriched market snapshot of one cycle.
type MarketSource interface {
	Scan(ctx context.Context, minVolume float64, enrich bool) []domain.Market
}

// OpportunityDetector ranks the markets of a cycle.
type OpportunityDetector interface {
	Detect(markets []domain.Market) []domain.ArbitrageOpportunity
}

// Ledger is the paper account the engine trades against.
type Ledger interface {
	ExecuteArbitragePair(ctx context.Context, yes, no domain.Order) (domain.Order, domain.Order)
	Snapshot() executor.Snapshot
	Trades() []domain.Trade
}

// Notifier receives engine events. *notify.Notifier satisfies it.
type Notifier interface {
	OpportunityFound(ctx context.Context, opp domain.ArbitrageOpportunity) error
	ArbitrageExecuted(ctx context.Context, opp domain.ArbitrageOpportunity, yes, no domain.Order) error
	ArbitrageRejected(ctx context.Context, opp domain.ArbitrageOpportunity, reason string) error
	SessionSummary(ctx context.Context, s domain.SessionSummary) error
}

// Config holds the loop settings.
type Config struct {
	Mode      string
	Interval  time.Duration
	MinVolume float64
	TopN      int           // opportunities printed and executed per cycle
	LockTTL   time.Duration // cycle lock lifetime when a LockManager is set
}

// DefaultConfig returns a paper engine scanning every five seconds.
func DefaultConfig() Config {
	return Config{
		Mode:      ModePaper,
		Interval:  5 * time.Second,
		MinVolume: 10000,
		TopN:      5,
		LockTTL:   2 * time.Minute,
	}
}

// Engine runs scan cycles one at a time. Counters and the opportunity journal
// may be read concurrently, for example by the HTTP API.
type Engine struct {
	cfg      Config
	source   MarketSource
	detector OpportunityDetector
	ledger   Ledger

	opps     domain.OpportunityStore
	audit    domain.AuditStore
	bus      domain.EventBus
	locks    domain.LockManager
	notifier Notifier
	archiver domain.SessionArchiver
	cooldown *executor.Cooldown
	closers  []func()
	out      io.Writer
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	startedAt time.Time
	scans     int
	found     int
	journal   []domain.ArbitrageOpportunity

	shutdownOnce sync.Once
}

// New builds an engine. Live mode is refused with
// domain.ErrLiveTradingUnsupported.
func New(cfg Config, source MarketSource, detector OpportunityDetector, ledger Ledger, logger *slog.Logger, opts ...Option) (*Engine, error) {
	switch cfg.Mode {
	case ModePaper, ModeScan:
	case ModeLive:
		return nil, domain.ErrLiveTradingUnsupported
	default:
		return nil, fmt.Errorf("engine: unknown mode %q", cfg.Mode)
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultConfig().TopN
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultConfig().LockTTL
	}

	e := &Engine{
		cfg:      cfg,
		source:   source,
		detector: detector,
		ledger:   ledger,
		notifier: nopNotifier{},
		out:      os.Stdout,
		logger:   logger.With(slog.String("component", "engine")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.startedAt = e.now().UTC()
	return e, nil
}

// Mode returns the configured mode.
func (e *Engine) Mode() string { return e.cfg.Mode }

// ScanOnce runs one full cycle and returns the number of opportunities found.
// Everything after the scan is best effort: persistence, publishing and
// notification failures are logged and the cycle continues.
func (e *Engine) ScanOnce(ctx context.Context) int {
	if e.locks != nil {
		unlock, err := e.locks.Acquire(ctx, cycleLockKey, e.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			e.logger.InfoContext(ctx, "cycle skipped, lock held by another instance")
			return 0
		case err != nil:
			e.logger.WarnContext(ctx, "cycle lock unavailable, running unlocked",
				slog.String("error", err.Error()),
			)
		default:
			defer unlock()
		}
	}

	e.mu.Lock()
	e.scans++
	scan := e.scans
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "scan starting", slog.Int("scan", scan))

	markets := e.source.Scan(ctx, e.cfg.MinVolume, true)
	if len(markets) == 0 {
		e.logger.WarnContext(ctx, "no markets found", slog.Int("scan", scan))
		return 0
	}

	opps := e.detector.Detect(markets)
	if len(opps) == 0 {
		e.logger.InfoContext(ctx, "no arbitrage opportunities this scan",
			slog.Int("scan", scan),
			slog.Int("markets", len(markets)),
		)
		return 0
	}

	e.logger.InfoContext(ctx, "arbitrage opportunities found",
		slog.Int("scan", scan),
		slog.Int("count", len(opps)),
	)
	for _, opp := range opps {
		e.persist(ctx, opp)
	}
	e.mu.Lock()
	e.found += len(opps)
	e.journal = append(e.journal, opps...)
	e.mu.Unlock()

	top := opps[:min(e.cfg.TopN, len(opps))]
	for _, opp := range top {
		fmt.Fprintln(e.out, arbitrage.FormatOpportunity(opp))
		if err := e.notifier.OpportunityFound(ctx, opp); err != nil {
			e.logger.WarnContext(ctx, "notify opportunity failed", slog.String("error", err.Error()))
		}
		if e.cfg.Mode == ModePaper {
			e.execute(ctx, opp)
		}
	}
	return len(opps)
}

func (e *Engine) persist(ctx context.Context, opp domain.ArbitrageOpportunity) {
	if e.opps != nil {
		if err := e.opps.Insert(ctx, opp); err != nil {
			e.logger.WarnContext(ctx, "store opportunity failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if e.bus != nil {
		if err := e.bus.PublishOpportunity(ctx, opp); err != nil {
			e.logger.WarnContext(ctx, "publish opportunity failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// execute buys SuggestedShares of each leg at the observed prices.
func (e *Engine) execute(ctx context.Context, opp domain.ArbitrageOpportunity) {
	m := opp.Market
	if e.cooldown.Active(m.ID) {
		e.logger.DebugContext(ctx, "market in cooldown, not re-entering",
			slog.String("market_id", m.ID),
		)
		return
	}
	shares := opp.SuggestedShares()
	if shares <= 0 {
		return
	}

	yes := domain.NewLimitOrder(m.ID, m.YesToken, domain.SideBuy, domain.OutcomeYes, opp.YesPrice, shares)
	no := domain.NewLimitOrder(m.ID, m.NoToken, domain.SideBuy, domain.OutcomeNo, opp.NoPrice, shares)
	yesOut, noOut := e.ledger.ExecuteArbitragePair(ctx, yes, no)

	if !yesOut.IsFilled() || !noOut.IsFilled() {
		reason := yesOut.Reason
		if reason == executor.ErrPairedLegRejected.Error() {
			reason = noOut.Reason
		}
		if err := e.notifier.ArbitrageRejected(ctx, opp, reason); err != nil {
			e.logger.WarnContext(ctx, "notify rejection failed", slog.String("error", err.Error()))
		}
		return
	}

	e.cooldown.Mark(m.ID)
	e.markExecuted(ctx, opp.ID)

	if e.audit != nil {
		err := e.audit.Log(ctx, "arbitrage_executed", map[string]any{
			"opportunity_id": opp.ID,
			"market_id":      m.ID,
			"shares":         shares,
			"total_cost":     yesOut.Notional() + noOut.Notional(),
			"profit_pct":     opp.ProfitPct,
		})
		if err != nil {
			e.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	if err := e.notifier.ArbitrageExecuted(ctx, opp, yesOut, noOut); err != nil {
		e.logger.WarnContext(ctx, "notify execution failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) markExecuted(ctx context.Context, id string) {
	e.mu.Lock()
	for i := len(e.journal) - 1; i >= 0; i-- {
		if e.journal[i].ID == id {
			e.journal[i].Executed = true
			break
		}
	}
	e.mu.Unlock()

	if e.opps != nil {
		if err := e.opps.MarkExecuted(ctx, id); err != nil {
			e.logger.WarnContext(ctx, "mark opportunity executed failed",
				slog.String("opportunity_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Run repeats ScanOnce until ctx is cancelled, or once when once is set, and
// then calls Shutdown. A cycle in progress is never interrupted: it runs on a
// context detached from ctx's cancellation.
func (e *Engine) Run(ctx context.Context, once bool) error {
	defer e.Shutdown(context.WithoutCancel(ctx))

	e.logger.InfoContext(ctx, "engine started",
		slog.String("mode", e.cfg.Mode),
		slog.Duration("interval", e.cfg.Interval),
		slog.Int("top_n", e.cfg.TopN),
	)
	if e.audit != nil {
		if err := e.audit.Log(ctx, "session_started", map[string]any{"mode": e.cfg.Mode}); err != nil {
			e.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}

	cycleCtx := context.WithoutCancel(ctx)
	for {
		e.ScanOnce(cycleCtx)
		if once {
			return nil
		}
		if e.cfg.Mode == ModePaper {
			fmt.Fprintln(e.out, executor.FormatStatus(e.ledger.Snapshot()))
		}

		e.logger.InfoContext(ctx, "sleeping until next scan", slog.Duration("interval", e.cfg.Interval))
		timer := time.NewTimer(e.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.InfoContext(ctx, "shutting down")
			return nil
		case <-timer.C:
		}
	}
}
