package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// TradeStore implements domain.TradeStore for the paper_trades table. Every
// row it writes is tagged with the session it was created for.
type TradeStore struct {
	pool      *pgxpool.Pool
	sessionID string
}

// NewTradeStore creates a TradeStore that tags inserts with sessionID.
func NewTradeStore(pool *pgxpool.Pool, sessionID string) *TradeStore {
	return &TradeStore{pool: pool, sessionID: sessionID}
}

const tradeSelectCols = `id, order_id, market_id, token_id, side, outcome,
	price, size, cost, module, paired_trade_id, executed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, outcome string
		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.MarketID, &t.TokenID, &side, &outcome,
			&t.Price, &t.Size, &t.Cost, &t.Module, &t.PairedTradeID, &t.ExecutedAt,
		); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		t.Outcome = domain.Outcome(outcome)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch writes trades in one round trip. Re-inserting a trade id is a
// no-op.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	const query = `
		INSERT INTO paper_trades (
			id, session_id, order_id, market_id, token_id, side, outcome,
			price, size, cost, module, paired_trade_id, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13
		) ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(query,
			t.ID, s.sessionID, t.OrderID, t.MarketID, t.TokenID, string(t.Side), string(t.Outcome),
			t.Price, t.Size, t.Cost, t.Module, t.PairedTradeID, t.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// RecordTrades lets the store sit behind the paper ledger.
func (s *TradeStore) RecordTrades(ctx context.Context, trades []domain.Trade) error {
	return s.InsertBatch(ctx, trades)
}

// ListByMarket returns a market's trades, newest first.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query, args := listQuery(
		`SELECT `+tradeSelectCols+` FROM paper_trades WHERE market_id = $1`,
		[]any{marketID}, "executed_at", opts)
	return s.list(ctx, "list trades by market", query, args)
}

// ListRecent returns trades across all sessions, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error) {
	query, args := listQuery(`SELECT `+tradeSelectCols+` FROM paper_trades`, nil, "executed_at", opts)
	return s.list(ctx, "list recent trades", query, args)
}

func (s *TradeStore) list(ctx context.Context, op, query string, args []any) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan %s: %w", op, err)
	}
	return trades, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
