package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/engine"
	"github.com/alanyoungcy/polyarb/internal/executor"
	"github.com/alanyoungcy/polyarb/internal/market"
	"github.com/alanyoungcy/polyarb/internal/server"
	"github.com/alanyoungcy/polyarb/internal/server/handler"
)

const serverShutdownTimeout = 10 * time.Second

// runSession builds the scanner, detector, paper ledger and engine, starts
// the HTTP API when enabled, and blocks until the engine returns.
func (a *App) runSession(ctx context.Context, mode string, deps *Dependencies, once bool) error {
	cfg := a.cfg

	a.logger.InfoContext(ctx, "session settings",
		slog.String("session_id", deps.SessionID),
		slog.String("mode", mode),
		slog.Float64("bankroll", cfg.Trading.Bankroll),
		slog.Float64("min_arbitrage_spread", cfg.Trading.MinArbitrageSpread),
		slog.Float64("min_market_volume", cfg.Scan.MinMarketVolume),
		slog.Duration("scan_interval", cfg.Scan.Interval.Duration),
	)

	scanner := market.NewScanner(deps.Gamma, deps.Clob, market.Config{
		PageSize:    cfg.Scan.PageSize,
		PageDelay:   cfg.Scan.PageDelay.Duration,
		EnrichDelay: cfg.Scan.EnrichDelay.Duration,
	}, a.logger)
	if deps.MarketCache != nil {
		scanner.UseSharedCache(deps.MarketCache, deps.PriceCache)
	}

	detector := arbitrage.NewDetector(arbitrage.Config{
		MinSpread:   cfg.Trading.MinArbitrageSpread,
		MinVolume:   cfg.Scan.MinMarketVolume,
		MaxPosition: cfg.Trading.MaxPositionUSD(),
	}, a.logger)

	ledger := executor.NewPaperExecutor(cfg.Trading.Bankroll, a.logger)

	opts := []engine.Option{
		engine.WithNotifier(deps.Notifier),
		engine.WithCooldown(cfg.Scan.Cooldown.Duration),
	}
	if deps.OpportunityStore != nil {
		opts = append(opts, engine.WithOpportunityStore(deps.OpportunityStore))
	}
	if deps.TradeStore != nil {
		ledger.AddRecorder(deps.TradeStore)
	}
	if deps.AuditStore != nil {
		opts = append(opts, engine.WithAuditStore(deps.AuditStore))
	}
	if deps.EventBus != nil {
		opts = append(opts, engine.WithEventBus(deps.EventBus))
		ledger.AddRecorder(deps.EventBus)
	}
	if deps.LockManager != nil {
		opts = append(opts, engine.WithLockManager(deps.LockManager))
	}
	if deps.Archiver != nil {
		opts = append(opts, engine.WithArchiver(deps.Archiver))
	}

	eng, err := engine.New(engine.Config{
		Mode:      mode,
		Interval:  cfg.Scan.Interval.Duration,
		MinVolume: cfg.Scan.MinMarketVolume,
		TopN:      cfg.Scan.TopN,
	}, scanner, detector, ledger, a.logger, opts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = a.newHTTPServer(deps, scanner, ledger, eng)
		g.Go(srv.Start)
	}

	g.Go(func() error {
		runErr := eng.Run(gctx, once)
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.WarnContext(ctx, "server shutdown failed", slog.String("error", err.Error()))
			}
		}
		return runErr
	})

	return g.Wait()
}

// newHTTPServer builds the read-only API over the running session. Trades
// and opportunities come from Postgres when it is wired and from the session
// otherwise.
func (a *App) newHTTPServer(deps *Dependencies, scanner *market.Scanner, ledger *executor.Executor, eng *engine.Engine) *server.Server {
	var trades handler.TradeReader
	if deps.TradeStore != nil {
		trades = deps.TradeStore
	}
	var opps handler.OpportunityReader = eng
	if deps.OpportunityStore != nil {
		opps = deps.OpportunityStore
	}

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(deps.Health, a.logger),
		Status:        handler.NewStatusHandler(ledger, eng),
		Positions:     handler.NewPositionHandler(ledger),
		Trades:        handler.NewTradeHandler(trades, ledger, a.logger),
		Opportunities: handler.NewArbHandler(opps, a.logger),
		Markets:       handler.NewMarketHandler(scanner, a.logger),
	}

	srvCfg := server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}
	if deps.APILimiter != nil {
		srvCfg.RateLimiter = deps.APILimiter
	}
	return server.NewServer(srvCfg, handlers, a.logger)
}
