// Package market acquires binary markets from Polymarket, normalizes them
// into domain.Market values and refreshes their prices.
package market

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/platform/polymarket"
)

// MetadataSource lists and fetches raw market listings.
type MetadataSource interface {
	GetMarkets(ctx context.Context, q polymarket.MarketsQuery) ([]polymarket.APIMarket, error)
	GetMarket(ctx context.Context, id string) (polymarket.APIMarket, error)
}

// PricingSource returns the mid-price of an outcome token.
type PricingSource interface {
	GetMidpoint(ctx context.Context, tokenID string) (float64, error)
}

// Config tunes pagination and pacing.
type Config struct {
	PageSize    int
	PageDelay   time.Duration
	EnrichDelay time.Duration
}

// DefaultConfig matches the public API's informal rate limits.
func DefaultConfig() Config {
	return Config{
		PageSize:    100,
		PageDelay:   100 * time.Millisecond,
		EnrichDelay: 50 * time.Millisecond,
	}
}

// Scanner pulls active markets, enriches them with live mid-prices and keeps
// an id-keyed cache of everything it has returned.
type Scanner struct {
	meta    MetadataSource
	pricing PricingSource
	cfg     Config
	logger  *slog.Logger

	shared domain.MarketCache // optional
	mids   domain.PriceCache  // optional

	mu       sync.RWMutex
	cache    map[string]domain.Market
	lastScan time.Time
}

// NewScanner creates a Scanner. Zero Config fields fall back to DefaultConfig.
func NewScanner(meta MetadataSource, pricing PricingSource, cfg Config, logger *slog.Logger) *Scanner {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = 0
	}
	if cfg.EnrichDelay < 0 {
		cfg.EnrichDelay = 0
	}
	return &Scanner{
		meta:    meta,
		pricing: pricing,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "scanner")),
		cache:   make(map[string]domain.Market),
	}
}

// UseSharedCache mirrors scanned markets and mid-prices into out-of-process
// caches. Either argument may be nil.
func (s *Scanner) UseSharedCache(markets domain.MarketCache, mids domain.PriceCache) {
	s.shared = markets
	s.mids = mids
}

// FetchActiveMarkets pages through every active, unclosed listing. A failed
// page ends pagination; whatever was collected before it is returned.
// Malformed listings are logged and returned for Normalize to reject.
func (s *Scanner) FetchActiveMarkets(ctx context.Context) []polymarket.APIMarket {
	var all []polymarket.APIMarket
	q := polymarket.MarketsQuery{Limit: s.cfg.PageSize, Active: true, Closed: false}

	for {
		page, err := s.meta.GetMarkets(ctx, q)
		if err != nil {
			s.logger.WarnContext(ctx, "fetch markets page failed",
				slog.Int("offset", q.Offset),
				slog.String("error", err.Error()),
			)
			break
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			if err := page[i].DecodeErr(); err != nil {
				s.logger.WarnContext(ctx, "malformed listing",
					slog.String("id", page[i].MarketID()),
					slog.Int("offset", q.Offset+i),
					slog.String("error", err.Error()),
				)
			}
		}
		all = append(all, page...)
		if len(page) < q.Limit {
			break
		}
		q.Offset += q.Limit
		if err := sleep(ctx, s.cfg.PageDelay); err != nil {
			break
		}
	}

	s.logger.InfoContext(ctx, "fetched active markets", slog.Int("count", len(all)))
	return all
}

// FetchPrices requests both mid-prices concurrently. A side that cannot be
// priced comes back as 0.
func (s *Scanner) FetchPrices(ctx context.Context, yesToken, noToken string) domain.PricePair {
	var pair domain.PricePair
	var g errgroup.Group
	g.Go(func() error {
		pair.Yes = s.midOrZero(ctx, yesToken)
		return nil
	})
	g.Go(func() error {
		pair.No = s.midOrZero(ctx, noToken)
		return nil
	})
	_ = g.Wait()
	return pair
}

func (s *Scanner) midOrZero(ctx context.Context, tokenID string) float64 {
	mid, err := s.pricing.GetMidpoint(ctx, tokenID)
	if err != nil {
		s.logger.DebugContext(ctx, "midpoint unavailable",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		return 0
	}
	if mid < 0 {
		return 0
	}
	return mid
}

// Normalize converts a raw listing to a Market. ok is false when the
// listing does not describe a YES/NO token pair.
func (s *Scanner) Normalize(raw polymarket.APIMarket, prices *domain.PricePair) (domain.Market, bool) {
	m, err := raw.ToDomainMarket(prices)
	if err != nil {
		s.logger.Debug("skipping listing", slog.String("error", err.Error()))
		return domain.Market{}, false
	}
	return m, true
}

// Scan fetches all active markets, drops those under minVolume, normalizes
// the rest and, when enrich is set, replaces their prices with fresh mids.
// Every returned market is cached by id.
func (s *Scanner) Scan(ctx context.Context, minVolume float64, enrich bool) []domain.Market {
	raws := s.FetchActiveMarkets(ctx)

	markets := make([]domain.Market, 0, len(raws))
	for i := range raws {
		if raws[i].Volume24h() < minVolume {
			continue
		}
		m, ok := s.Normalize(raws[i], nil)
		if !ok {
			continue
		}

		if enrich {
			pair := s.FetchPrices(ctx, m.YesToken, m.NoToken)
			m.YesPrice, m.NoPrice = pair.Yes, pair.No
			m.UpdatedAt = time.Now().UTC()
		}

		markets = append(markets, m)
		s.store(ctx, m.ID, m)

		if enrich {
			if err := sleep(ctx, s.cfg.EnrichDelay); err != nil {
				break
			}
		}
	}

	s.mu.Lock()
	s.lastScan = time.Now().UTC()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "scan complete",
		slog.Int("markets", len(markets)),
		slog.Float64("min_volume", minVolume),
		slog.Bool("enriched", enrich),
	)
	return markets
}

// Get returns a market by id. A cached market is returned without any
// network call; otherwise one metadata fetch is attempted and its result
// cached.
func (s *Scanner) Get(ctx context.Context, id string) (domain.Market, bool) {
	s.mu.RLock()
	m, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return m, true
	}

	if s.shared != nil {
		m, err := s.shared.Get(ctx, id)
		if err == nil {
			s.mu.Lock()
			s.cache[id] = m
			s.mu.Unlock()
			return m, true
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "shared market cache read failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	raw, err := s.meta.GetMarket(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		return domain.Market{}, false
	}
	m, ok = s.Normalize(raw, nil)
	if !ok {
		return domain.Market{}, false
	}
	s.store(ctx, id, m)
	return m, true
}

// FindSpreadCandidates returns the priced markets whose arbitrage spread is
// at least minSpread, widest spread first.
func (s *Scanner) FindSpreadCandidates(markets []domain.Market, minSpread float64) []domain.Market {
	var out []domain.Market
	for _, m := range markets {
		if !m.PricesUsable() {
			continue
		}
		if m.ArbitrageSpread() >= minSpread {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ArbitrageSpread() > out[j].ArbitrageSpread()
	})
	return out
}

// LastScan is the completion time of the latest Scan, zero before the first.
func (s *Scanner) LastScan() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan
}

// Cached returns a copy of every cached market.
func (s *Scanner) Cached() []domain.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Market, 0, len(s.cache))
	for _, m := range s.cache {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Scanner) store(ctx context.Context, key string, m domain.Market) {
	s.mu.Lock()
	s.cache[key] = m
	s.mu.Unlock()

	if s.shared != nil {
		if err := s.shared.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "shared market cache write failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.mids != nil && m.PricesUsable() {
		for tok, mid := range map[string]float64{m.YesToken: m.YesPrice, m.NoToken: m.NoPrice} {
			if err := s.mids.SetMid(ctx, tok, mid, m.UpdatedAt); err != nil {
				s.logger.WarnContext(ctx, "price cache write failed",
					slog.String("token_id", tok),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
