package polymarket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func decodeMarket(t *testing.T, raw string) APIMarket {
	t.Helper()
	var m APIMarket
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestToDomainMarketFromTokens(t *testing.T) {
	m := decodeMarket(t, `{
		"id": 512,
		"condition_id": "0xabc",
		"question": "Will it rain?",
		"slug": "rain",
		"volume_24hr": "15000.5",
		"liquidity": 1200,
		"end_date_iso": "2025-12-31T00:00:00Z",
		"tokens": [
			{"token_id": "y1", "outcome": "Yes", "price": "0.45"},
			{"token_id": "n1", "outcome": "NO", "price": 0.5}
		]
	}`)

	got, err := m.ToDomainMarket(nil)
	if err != nil {
		t.Fatalf("ToDomainMarket: %v", err)
	}
	if got.ID != "0xabc" {
		t.Errorf("ID = %q, want condition id", got.ID)
	}
	if got.YesToken != "y1" || got.NoToken != "n1" {
		t.Errorf("tokens = %q/%q", got.YesToken, got.NoToken)
	}
	if got.YesPrice != 0.45 || got.NoPrice != 0.5 {
		t.Errorf("prices = %v/%v", got.YesPrice, got.NoPrice)
	}
	if got.Volume24h != 15000.5 || got.Liquidity != 1200 {
		t.Errorf("volume/liquidity = %v/%v", got.Volume24h, got.Liquidity)
	}
	if !got.Active {
		t.Error("missing active field should default to true")
	}
	want := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	if got.EndDate == nil || !got.EndDate.Equal(want) {
		t.Errorf("EndDate = %v, want %v", got.EndDate, want)
	}
}

func TestToDomainMarketPricesOverride(t *testing.T) {
	m := decodeMarket(t, `{"id":"7","tokens":[
		{"token_id":"y","outcome":"yes","price":"0.9"},
		{"token_id":"n","outcome":"no","price":"0.9"}]}`)

	got, err := m.ToDomainMarket(&domain.PricePair{Yes: 0.3, No: 0.6})
	if err != nil {
		t.Fatalf("ToDomainMarket: %v", err)
	}
	if got.ID != "7" {
		t.Errorf("ID = %q, want numeric id fallback", got.ID)
	}
	if got.YesPrice != 0.3 || got.NoPrice != 0.6 {
		t.Errorf("prices = %v/%v, want provided pair", got.YesPrice, got.NoPrice)
	}
}

func TestToDomainMarketFromEncodedArrays(t *testing.T) {
	m := decodeMarket(t, `{
		"id": "9",
		"conditionId": "0xdef",
		"outcomes": "[\"Yes\",\"No\"]",
		"outcomePrices": "[\"0.41\",\"0.55\"]",
		"clobTokenIds": "[\"111\",\"222\"]",
		"volume24hr": 20000,
		"endDate": "2026-03-01T12:00:00Z"
	}`)

	got, err := m.ToDomainMarket(nil)
	if err != nil {
		t.Fatalf("ToDomainMarket: %v", err)
	}
	if got.ID != "0xdef" || got.YesToken != "111" || got.NoToken != "222" {
		t.Errorf("got %+v", got)
	}
	if got.YesPrice != 0.41 || got.NoPrice != 0.55 {
		t.Errorf("prices = %v/%v", got.YesPrice, got.NoPrice)
	}
	if got.Volume24h != 20000 {
		t.Errorf("Volume24h = %v", got.Volume24h)
	}
}

func TestToDomainMarketMalformed(t *testing.T) {
	cases := map[string]string{
		"one token":      `{"id":"1","tokens":[{"token_id":"y","outcome":"Yes"}]}`,
		"no yes label":   `{"id":"1","tokens":[{"token_id":"a","outcome":"Up"},{"token_id":"b","outcome":"No"}]}`,
		"empty no token": `{"id":"1","tokens":[{"token_id":"a","outcome":"Yes"},{"token_id":"","outcome":"No"}]}`,
		"no tokens":      `{"id":"1"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			m := decodeMarket(t, raw)
			if _, err := m.ToDomainMarket(nil); !errors.Is(err, domain.ErrMalformedListing) {
				t.Fatalf("err = %v, want ErrMalformedListing", err)
			}
		})
	}
}

func TestParseEndDate(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{in: "", want: nil},
		{in: "not a date", want: nil},
		{in: "2025-01-02T03:04:05Z", want: ptr(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))},
		{in: "2025-01-02T03:04:05+02:00", want: ptr(time.Date(2025, 1, 2, 1, 4, 5, 0, time.UTC))},
		{in: "2025-01-02", want: ptr(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		got := ParseEndDate(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("ParseEndDate(%q) = %v, want nil", tt.in, got)
		case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
			t.Errorf("ParseEndDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuoteDecoding(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{`{"mid":"0.455"}`, 0.455, true},
		{`{"mid":0.3}`, 0.3, true},
		{`{"mid":"abc"}`, 0, false},
		{`{"mid":null}`, 0, false},
		{`{}`, 0, false},
	}
	for _, tt := range tests {
		var m APIMidpoint
		if err := json.Unmarshal([]byte(tt.raw), &m); err != nil {
			t.Fatalf("decode %s: %v", tt.raw, err)
		}
		got, err := m.Mid.value()
		if tt.wantOK && (err != nil || got != tt.want) {
			t.Errorf("%s: got %v, %v; want %v", tt.raw, got, err, tt.want)
		}
		if !tt.wantOK && !errors.Is(err, ErrNoQuote) {
			t.Errorf("%s: err = %v, want ErrNoQuote", tt.raw, err)
		}
	}
}

func TestBookBestPrices(t *testing.T) {
	var b APIBook
	raw := `{"bids":[{"price":"0.44","size":"10"},{"price":"0.46","size":"5"}],
	         "asks":[{"price":"0.52","size":"7"},{"price":"0.49","size":"3"}]}`
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.BestBid() != 0.46 || b.BestAsk() != 0.49 {
		t.Errorf("bbo = %v/%v", b.BestBid(), b.BestAsk())
	}
}

func ptr[T any](v T) *T { return &v }
