package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore for arb_opportunities.
type OpportunityStore struct {
	pool      *pgxpool.Pool
	sessionID string
}

// NewOpportunityStore creates an OpportunityStore that tags inserts with
// sessionID.
func NewOpportunityStore(pool *pgxpool.Pool, sessionID string) *OpportunityStore {
	return &OpportunityStore{pool: pool, sessionID: sessionID}
}

const oppSelectCols = `id, market_id, question, yes_token, no_token,
	yes_price, no_price, total_cost, profit, profit_pct,
	volume_24h, liquidity, max_size, suggested_size, detected_at, executed`

// Insert stores a detected opportunity. A repeated id is ignored.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	const query = `
		INSERT INTO arb_opportunities (
			id, session_id, market_id, question, yes_token, no_token,
			yes_price, no_price, total_cost, profit, profit_pct,
			volume_24h, liquidity, max_size, suggested_size,
			detected_at, executed, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18
		) ON CONFLICT (id) DO NOTHING`

	var executedAt *time.Time
	if opp.Executed {
		now := time.Now().UTC()
		executedAt = &now
	}

	m := opp.Market
	_, err := s.pool.Exec(ctx, query,
		opp.ID, s.sessionID, m.ID, m.Question, m.YesToken, m.NoToken,
		opp.YesPrice, opp.NoPrice, opp.TotalCost, opp.Profit, opp.ProfitPct,
		m.Volume24h, m.Liquidity, opp.MaxSize, opp.SuggestedSize,
		opp.DetectedAt, opp.Executed, executedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// MarkExecuted returns domain.ErrNotFound for an unknown id.
func (s *OpportunityStore) MarkExecuted(ctx context.Context, id string) error {
	const query = `
		UPDATE arb_opportunities SET
			executed    = TRUE,
			executed_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: mark opportunity executed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns the newest opportunities first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	query, args := listQuery(`SELECT `+oppSelectCols+` FROM arb_opportunities`, nil,
		"detected_at", domain.ListOpts{Limit: limit})

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var opp domain.ArbitrageOpportunity
		m := &opp.Market
		if err := rows.Scan(
			&opp.ID, &m.ID, &m.Question, &m.YesToken, &m.NoToken,
			&opp.YesPrice, &opp.NoPrice, &opp.TotalCost, &opp.Profit, &opp.ProfitPct,
			&m.Volume24h, &m.Liquidity, &opp.MaxSize, &opp.SuggestedSize,
			&opp.DetectedAt, &opp.Executed,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		m.YesPrice, m.NoPrice = opp.YesPrice, opp.NoPrice
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities rows: %w", err)
	}
	return opps, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
