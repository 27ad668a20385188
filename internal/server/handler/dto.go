package handler

import (
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

type marketJSON struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug,omitempty"`
	Question  string     `json:"question"`
	YesToken  string     `json:"yes_token"`
	NoToken   string     `json:"no_token"`
	YesPrice  float64    `json:"yes_price"`
	NoPrice   float64    `json:"no_price"`
	SpreadSum float64    `json:"spread_sum"`
	Volume24h float64    `json:"volume_24h"`
	Liquidity float64    `json:"liquidity"`
	Active    bool       `json:"active"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

func toMarketJSON(m domain.Market) marketJSON {
	return marketJSON{
		ID:        m.ID,
		Slug:      m.Slug,
		Question:  m.Question,
		YesToken:  m.YesToken,
		NoToken:   m.NoToken,
		YesPrice:  m.YesPrice,
		NoPrice:   m.NoPrice,
		SpreadSum: m.SpreadSum(),
		Volume24h: m.Volume24h,
		Liquidity: m.Liquidity,
		Active:    m.Active,
		EndDate:   m.EndDate,
	}
}

type opportunityJSON struct {
	ID            string    `json:"id"`
	MarketID      string    `json:"market_id"`
	Question      string    `json:"question"`
	YesPrice      float64   `json:"yes_price"`
	NoPrice       float64   `json:"no_price"`
	TotalCost     float64   `json:"total_cost"`
	Profit        float64   `json:"profit"`
	ProfitPct     float64   `json:"profit_pct"`
	MaxSize       float64   `json:"max_size"`
	SuggestedSize float64   `json:"suggested_size"`
	DetectedAt    time.Time `json:"detected_at"`
	Executed      bool      `json:"executed"`
}

func toOpportunityJSON(o domain.ArbitrageOpportunity) opportunityJSON {
	return opportunityJSON{
		ID:            o.ID,
		MarketID:      o.Market.ID,
		Question:      o.Market.Question,
		YesPrice:      o.YesPrice,
		NoPrice:       o.NoPrice,
		TotalCost:     o.TotalCost,
		Profit:        o.Profit,
		ProfitPct:     o.ProfitPct,
		MaxSize:       o.MaxSize,
		SuggestedSize: o.SuggestedSize,
		DetectedAt:    o.DetectedAt,
		Executed:      o.Executed,
	}
}

type tradeJSON struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	MarketID      string    `json:"market_id"`
	TokenID       string    `json:"token_id"`
	Side          string    `json:"side"`
	Outcome       string    `json:"outcome"`
	Price         float64   `json:"price"`
	Size          float64   `json:"size"`
	Cost          float64   `json:"cost"`
	PairedTradeID string    `json:"paired_trade_id,omitempty"`
	ExecutedAt    time.Time `json:"executed_at"`
}

func toTradeJSON(t domain.Trade) tradeJSON {
	return tradeJSON{
		ID:            t.ID,
		OrderID:       t.OrderID,
		MarketID:      t.MarketID,
		TokenID:       t.TokenID,
		Side:          string(t.Side),
		Outcome:       string(t.Outcome),
		Price:         t.Price,
		Size:          t.Size,
		Cost:          t.Cost,
		PairedTradeID: t.PairedTradeID,
		ExecutedAt:    t.ExecutedAt,
	}
}

type positionJSON struct {
	MarketID      string  `json:"market_id"`
	TokenID       string  `json:"token_id"`
	Outcome       string  `json:"outcome"`
	Shares        float64 `json:"shares"`
	AvgPrice      float64 `json:"avg_price"`
	CurrentPrice  float64 `json:"current_price"`
	CostBasis     float64 `json:"cost_basis"`
	CurrentValue  float64 `json:"current_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

func toPositionJSON(p domain.Position) positionJSON {
	return positionJSON{
		MarketID:      p.MarketID,
		TokenID:       p.TokenID,
		Outcome:       string(p.Outcome),
		Shares:        p.Shares,
		AvgPrice:      p.AvgPrice,
		CurrentPrice:  p.CurrentPrice,
		CostBasis:     p.CostBasis(),
		CurrentValue:  p.CurrentValue(),
		UnrealizedPnL: p.UnrealizedPnL(),
	}
}

func mapSlice[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
