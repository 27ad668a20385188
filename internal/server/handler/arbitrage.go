package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// OpportunityReader lists recent opportunities. Both *engine.Engine and
// *postgres.OpportunityStore satisfy it.
type OpportunityReader interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error)
}

// ArbHandler serves detected arbitrage opportunities.
type ArbHandler struct {
	opps   OpportunityReader
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler.
func NewArbHandler(opps OpportunityReader, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{opps: opps, logger: logger}
}

type listArbResponse struct {
	Opportunities []opportunityJSON `json:"opportunities"`
}

// ListRecent returns the most recent opportunities.
// GET /api/opportunities?limit=20
func (h *ArbHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 200)

	opps, err := h.opps.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list arbitrage opportunities")
		return
	}
	writeJSON(w, http.StatusOK, listArbResponse{Opportunities: mapSlice(opps, toOpportunityJSON)})
}
