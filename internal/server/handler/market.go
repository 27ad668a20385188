package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// MarketReader is the scanner's read side.
type MarketReader interface {
	Cached() []domain.Market
	Get(ctx context.Context, id string) (domain.Market, bool)
}

// MarketHandler serves the markets seen by the scanner.
type MarketHandler struct {
	markets MarketReader
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketReader, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

type listMarketsResponse struct {
	Markets []marketJSON `json:"markets"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// ListMarkets returns cached markets cheapest pair first. ?max_sum= keeps only
// markets whose YES+NO price sum is at or below the given value.
// GET /api/markets?limit=50&offset=0&max_sum=0.99
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	all := h.markets.Cached()
	if v := r.URL.Query().Get("max_sum"); v != "" {
		maxSum, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_sum must be a number")
			return
		}
		kept := all[:0]
		for _, m := range all {
			if m.PricesUsable() && m.SpreadSum() <= maxSum {
				kept = append(kept, m)
			}
		}
		all = kept
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].SpreadSum() < all[j].SpreadSum() })

	total := len(all)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: mapSlice(all[start:end], toMarketJSON),
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns one market, fetching it when the scanner has not seen it.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, ok := h.markets.Get(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	writeJSON(w, http.StatusOK, toMarketJSON(m))
}
