// Package arbitrage finds single-market YES/NO arbitrage and turns it into
// trade signals.
package arbitrage

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Module is the source name stamped on every signal from this package.
const Module = "arbitrage"

// Config holds the detector thresholds.
type Config struct {
	MinSpread   float64 // minimum profit / cost ratio
	MinVolume   float64 // minimum 24h volume in USD
	MaxPosition float64 // maximum notional per opportunity in USD
}

// DefaultConfig is the stock configuration for a 1000 USD bankroll.
func DefaultConfig() Config {
	return Config{MinSpread: 0.02, MinVolume: 10000, MaxPosition: 1000 * 0.05}
}

// Detector evaluates market snapshots. It holds no state beyond its
// thresholds and is safe for concurrent use.
type Detector struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a Detector.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "arb_detector")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the thresholds in use.
func (d *Detector) Config() Config { return d.cfg }

// Evaluate returns the opportunity in m, or false when m is not eligible.
func (d *Detector) Evaluate(m domain.Market) (domain.ArbitrageOpportunity, bool) {
	if !m.PricesUsable() {
		return domain.ArbitrageOpportunity{}, false
	}
	if m.Volume24h < d.cfg.MinVolume {
		return domain.ArbitrageOpportunity{}, false
	}

	totalCost := m.YesPrice + m.NoPrice
	profit := 1.0 - totalCost
	profitPct := profit / totalCost
	if profitPct < d.cfg.MinSpread {
		return domain.ArbitrageOpportunity{}, false
	}

	maxShares := d.cfg.MaxPosition / totalCost
	liquidityShares := math.Inf(1)
	if m.Liquidity > 0 {
		liquidityShares = m.Liquidity / 2
	}
	suggestedShares := math.Min(maxShares, liquidityShares)

	return domain.ArbitrageOpportunity{
		ID:            uuid.New().String(),
		Market:        m,
		YesPrice:      m.YesPrice,
		NoPrice:       m.NoPrice,
		TotalCost:     totalCost,
		Profit:        profit,
		ProfitPct:     profitPct,
		MaxSize:       maxShares * totalCost,
		SuggestedSize: suggestedShares * totalCost,
		DetectedAt:    d.now(),
	}, true
}

// Detect returns every eligible opportunity, highest profit ratio first.
// Markets with equal ratios keep their input order.
func (d *Detector) Detect(markets []domain.Market) []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity
	for _, m := range markets {
		opp, ok := d.Evaluate(m)
		if !ok {
			continue
		}
		opps = append(opps, opp)
		d.logger.Info("arbitrage found",
			slog.String("market_id", m.ID),
			slog.String("question", truncate(m.Question, 50)),
			slog.Float64("yes", opp.YesPrice),
			slog.Float64("no", opp.NoPrice),
			slog.Float64("profit_pct", opp.ProfitPct),
			slog.Float64("suggested_size", opp.SuggestedSize),
		)
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitPct > opps[j].ProfitPct
	})
	return opps
}
