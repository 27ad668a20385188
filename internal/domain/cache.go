package domain

import (
	"context"
	"time"
)

// MarketCache is a shared market metadata cache. The scanner consults it after
// its in-process map and before going to the network.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	GetByToken(ctx context.Context, tokenID string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// PriceCache keeps the latest mid-price seen for each outcome token.
type PriceCache interface {
	SetMid(ctx context.Context, tokenID string, mid float64, ts time.Time) error
	GetMid(ctx context.Context, tokenID string) (float64, time.Time, error)
	GetMids(ctx context.Context, tokenIDs []string) (map[string]float64, error)
}

// RateLimiter throttles outbound calls that share a key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// EventBus fans out detector and ledger events to other processes.
type EventBus interface {
	PublishOpportunity(ctx context.Context, opp ArbitrageOpportunity) error
	AppendTrade(ctx context.Context, trade Trade) error
	RecentTrades(ctx context.Context, count int) ([]Trade, error)
}
