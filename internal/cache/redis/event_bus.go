package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	// OpportunityChannel carries every detected opportunity as JSON.
	OpportunityChannel = keyPrefix + "opportunities"
	// TradeStream is the durable, ordered log of paper fills.
	TradeStream = keyPrefix + "paper:trades"

	defaultStreamMaxLen int64 = 10000
)

// EventBus implements domain.EventBus with Pub/Sub for opportunities and a
// capped stream for trades.
type EventBus struct {
	rdb    *redis.Client
	maxLen int64
}

// NewEventBus creates an EventBus. A non-positive maxLen keeps roughly the
// last 10,000 trades.
func NewEventBus(c *Client, maxLen int64) *EventBus {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &EventBus{rdb: c.Underlying(), maxLen: maxLen}
}

// PublishOpportunity broadcasts opp on OpportunityChannel.
func (b *EventBus) PublishOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity %s: %w", opp.ID, err)
	}
	if err := b.rdb.Publish(ctx, OpportunityChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", OpportunityChannel, err)
	}
	return nil
}

// SubscribeOpportunities streams opportunities published by any process until
// ctx is done. The returned channel is closed when the subscription ends.
func (b *EventBus) SubscribeOpportunities(ctx context.Context) (<-chan domain.ArbitrageOpportunity, error) {
	pubsub := b.rdb.Subscribe(ctx, OpportunityChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", OpportunityChannel, err)
	}

	out := make(chan domain.ArbitrageOpportunity, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var opp domain.ArbitrageOpportunity
				if err := json.Unmarshal([]byte(msg.Payload), &opp); err != nil {
					continue
				}
				select {
				case out <- opp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// AppendTrade adds trade to TradeStream, trimming it to about maxLen entries.
func (b *EventBus) AppendTrade(ctx context.Context, trade domain.Trade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("redis: marshal trade %s: %w", trade.ID, err)
	}
	args := &redis.XAddArgs{
		Stream: TradeStream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"market":  trade.MarketID,
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", TradeStream, err)
	}
	return nil
}

// RecordTrades appends each trade in order so the bus can sit behind the
// paper ledger as a recorder.
func (b *EventBus) RecordTrades(ctx context.Context, trades []domain.Trade) error {
	for _, tr := range trades {
		if err := b.AppendTrade(ctx, tr); err != nil {
			return err
		}
	}
	return nil
}

// RecentTrades returns up to count trades, newest first.
func (b *EventBus) RecentTrades(ctx context.Context, count int) ([]domain.Trade, error) {
	if count <= 0 {
		return nil, nil
	}
	msgs, err := b.rdb.XRevRangeN(ctx, TradeStream, "+", "-", int64(count)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: stream read %s: %w", TradeStream, err)
	}

	trades := make([]domain.Trade, 0, len(msgs))
	for _, msg := range msgs {
		var data []byte
		switch v := msg.Values["payload"].(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			continue
		}
		var tr domain.Trade
		if err := json.Unmarshal(data, &tr); err != nil {
			continue
		}
		trades = append(trades, tr)
	}
	return trades, nil
}

var _ domain.EventBus = (*EventBus)(nil)
