package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func TestGammaGetMarketsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "100" || q.Get("offset") != "200" || q.Get("active") != "true" || q.Get("closed") != "false" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		fmt.Fprint(w, `[{"id":"1","question":"a"},{"id":2,"question":"b"}]`)
	}))
	defer srv.Close()

	g := NewGammaClient(srv.URL)
	got, err := g.GetMarkets(context.Background(), MarketsQuery{Limit: 100, Offset: 200, Active: true})
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if len(got) != 2 || got[1].ID != "2" {
		t.Fatalf("got %+v", got)
	}
}

func TestGammaGetMarketsDecodesListingsIndividually(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"1","tokens":[{"token_id":"y","outcome":"Yes","winner":"false"},{"token_id":"n","outcome":"No","winner":false}]},
			{"id":"2","question":["not","a","string"]},
			{"id":"3","question":"c"}
		]`)
	}))
	defer srv.Close()

	got, err := NewGammaClient(srv.URL).GetMarkets(context.Background(), MarketsQuery{Limit: 3})
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d listings, want 3", len(got))
	}
	if got[0].DecodeErr() != nil || got[2].DecodeErr() != nil {
		t.Fatalf("good listings carry errors: %v, %v", got[0].DecodeErr(), got[2].DecodeErr())
	}
	if got[0].Tokens[0].Winner || got[2].Question != "c" {
		t.Errorf("good listings = %+v, %+v", got[0], got[2])
	}
	if got[1].DecodeErr() == nil || got[1].ID != "2" {
		t.Fatalf("bad listing = %+v", got[1])
	}
	if _, err := got[1].ToDomainMarket(nil); !errors.Is(err, domain.ErrMalformedListing) {
		t.Errorf("ToDomainMarket err = %v, want ErrMalformedListing", err)
	}
}

func TestGammaGetMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such market", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL).GetMarket(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCheckHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{200, nil},
		{401, domain.ErrUnauthorized},
		{403, domain.ErrUnauthorized},
		{404, domain.ErrNotFound},
		{429, domain.ErrRateLimited},
	}
	for _, tt := range tests {
		err := checkHTTPStatus(tt.code, []byte("body"))
		if tt.want == nil && err != nil {
			t.Errorf("%d: err = %v", tt.code, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%d: err = %v, want %v", tt.code, err, tt.want)
		}
	}
	if err := checkHTTPStatus(500, nil); err == nil {
		t.Error("500 should fail")
	}
}

func TestClobEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := r.URL.Query().Get("token_id")
		switch r.URL.Path {
		case "/midpoint":
			if tok == "bad" {
				fmt.Fprint(w, `{"mid":"n/a"}`)
				return
			}
			fmt.Fprint(w, `{"mid":"0.47"}`)
		case "/last-trade-price":
			fmt.Fprint(w, `{"price":"0.51","side":"BUY"}`)
		case "/price":
			if r.URL.Query().Get("side") != "buy" {
				t.Errorf("side = %q", r.URL.Query().Get("side"))
			}
			fmt.Fprint(w, `{"price":0.5}`)
		case "/book":
			fmt.Fprint(w, `{"asset_id":"`+tok+`","bids":[{"price":"0.4","size":"1"}],"asks":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClobClient(srv.URL)

	if mid, err := c.GetMidpoint(ctx, "y"); err != nil || mid != 0.47 {
		t.Errorf("GetMidpoint = %v, %v", mid, err)
	}
	if _, err := c.GetMidpoint(ctx, "bad"); !errors.Is(err, ErrNoQuote) {
		t.Errorf("unparseable mid err = %v", err)
	}
	if p, err := c.GetLastTradePrice(ctx, "y"); err != nil || p != 0.51 {
		t.Errorf("GetLastTradePrice = %v, %v", p, err)
	}
	if p, err := c.GetPrice(ctx, "y", "buy"); err != nil || p != 0.5 {
		t.Errorf("GetPrice = %v, %v", p, err)
	}
	book, err := c.GetOrderBook(ctx, "y")
	if err != nil || book.AssetID != "y" || book.BestBid() != 0.4 || book.BestAsk() != 0 {
		t.Errorf("GetOrderBook = %+v, %v", book, err)
	}
}

type countingLimiter struct{ n atomic.Int32 }

func (l *countingLimiter) Wait(context.Context, string) error {
	l.n.Add(1)
	return nil
}

func TestLimiterIsConsulted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mid":"0.5"}`)
	}))
	defer srv.Close()

	l := &countingLimiter{}
	c := NewClobClient(srv.URL, WithLimiter(l, "k"))
	for i := 0; i < 3; i++ {
		if _, err := c.GetMidpoint(context.Background(), "t"); err != nil {
			t.Fatalf("GetMidpoint: %v", err)
		}
	}
	if got := l.n.Load(); got != 3 {
		t.Errorf("limiter calls = %d, want 3", got)
	}
}
