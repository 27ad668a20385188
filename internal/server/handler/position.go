package handler

import "net/http"

// PositionHandler serves the open paper positions.
type PositionHandler struct {
	account AccountView
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(account AccountView) *PositionHandler {
	return &PositionHandler{account: account}
}

type listPositionsResponse struct {
	Positions []positionJSON `json:"positions"`
}

// ListPositions returns every open position in fill order.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	snap := h.account.Snapshot()
	writeJSON(w, http.StatusOK, listPositionsResponse{
		Positions: mapSlice(snap.Positions, toPositionJSON),
	})
}
