package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// ErrNoQuote is returned when the CLOB answers without a usable price.
var ErrNoQuote = errors.New("polymarket/clob: no quote")

// ClobClient is a read-only client for the Polymarket CLOB pricing
// endpoints. Order placement is not supported.
type ClobClient struct {
	rest restClient
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, opts ...Option) *ClobClient {
	return &ClobClient{rest: newRestClient(baseURL, "polymarket:clob", opts)}
}

func tokenQuery(path, tokenID string, extra ...string) string {
	params := url.Values{}
	params.Set("token_id", tokenID)
	for i := 0; i+1 < len(extra); i += 2 {
		params.Set(extra[i], extra[i+1])
	}
	return path + "?" + params.Encode()
}

// GetOrderBook returns the current book of a token.
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (APIBook, error) {
	body, err := c.rest.doGet(ctx, tokenQuery("/book", tokenID))
	if err != nil {
		return APIBook{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return APIBook{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	return book, nil
}

// GetPrice returns the best price a taker on the given side would get.
// side is "buy" or "sell".
func (c *ClobClient) GetPrice(ctx context.Context, tokenID, side string) (float64, error) {
	body, err := c.rest.doGet(ctx, tokenQuery("/price", tokenID, "side", side))
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: get price %s: %w", tokenID, err)
	}

	var resp APIPrice
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode price: %w", err)
	}
	return resp.Price.value()
}

// GetMidpoint returns the mid-price of a token. A response without a
// parseable "mid" field yields ErrNoQuote.
func (c *ClobClient) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	body, err := c.rest.doGet(ctx, tokenQuery("/midpoint", tokenID))
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: get midpoint %s: %w", tokenID, err)
	}

	var resp APIMidpoint
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode midpoint: %w", err)
	}
	return resp.Mid.value()
}

// GetLastTradePrice returns the price of the most recent trade of a token.
func (c *ClobClient) GetLastTradePrice(ctx context.Context, tokenID string) (float64, error) {
	body, err := c.rest.doGet(ctx, tokenQuery("/last-trade-price", tokenID))
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: get last trade price %s: %w", tokenID, err)
	}

	var resp APIPrice
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode last trade price: %w", err)
	}
	return resp.Price.value()
}
