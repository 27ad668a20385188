package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	rest restClient
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, opts ...Option) *GammaClient {
	return &GammaClient{rest: newRestClient(baseURL, "polymarket:gamma", opts)}
}

// MarketsQuery selects a page of the /markets listing.
type MarketsQuery struct {
	Limit  int
	Offset int
	Active bool
	Closed bool
}

// GetMarkets returns one page of raw market listings. Each element is decoded
// on its own: one that fails keeps its slot in the page, carrying the decode
// error, so the page length still reflects what the server sent and
// ToDomainMarket rejects the listing.
func (g *GammaClient) GetMarkets(ctx context.Context, q MarketsQuery) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("active", strconv.FormatBool(q.Active))
	params.Set("closed", strconv.FormatBool(q.Closed))

	body, err := g.rest.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	markets := make([]APIMarket, len(raws))
	for i, raw := range raws {
		markets[i] = decodeListing(raw)
	}
	return markets, nil
}

// decodeListing decodes one element of a /markets page. On failure only the
// identifiers are recovered, best effort.
func decodeListing(raw json.RawMessage) APIMarket {
	var m APIMarket
	err := json.Unmarshal(raw, &m)
	if err == nil {
		return m
	}

	var ids struct {
		ID          flexString `json:"id"`
		ConditionID string     `json:"condition_id"`
	}
	_ = json.Unmarshal(raw, &ids)
	return APIMarket{
		ID:          string(ids.ID),
		ConditionID: ids.ConditionID,
		decodeErr:   err,
	}
}

// GetMarket returns a single raw market listing by id.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (APIMarket, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(id))

	body, err := g.rest.doGet(ctx, path)
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var market APIMarket
	if err := json.Unmarshal(body, &market); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return market, nil
}
