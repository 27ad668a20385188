package polymarket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat accepts a JSON number, a numeric string, "" or null. Anything
// that does not parse decodes to 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	v, ok := parseNumeric(data)
	if ok {
		*f = flexFloat(v)
	}
	return nil
}

// flexString accepts a JSON string or number; Gamma sends numeric ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// quote is an optional price. It is present only when the field was a
// number or a numeric string.
type quote struct {
	v  float64
	ok bool
}

func (q *quote) UnmarshalJSON(data []byte) error {
	q.v, q.ok = parseNumeric(data)
	return nil
}

func (q quote) value() (float64, error) {
	if !q.ok {
		return 0, ErrNoQuote
	}
	return q.v, nil
}

func parseNumeric(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APILevel is a single bid or ask level of a CLOB book.
type APILevel struct {
	Price flexFloat `json:"price"`
	Size  flexFloat `json:"size"`
}

// APIBook is the /book response.
type APIBook struct {
	Market    string     `json:"market"`
	AssetID   string     `json:"asset_id"`
	Hash      string     `json:"hash"`
	Timestamp string     `json:"timestamp"`
	Bids      []APILevel `json:"bids"`
	Asks      []APILevel `json:"asks"`
}

// BestBid is the highest bid price, 0 when the bid side is empty.
func (b APIBook) BestBid() float64 {
	var best float64
	for _, l := range b.Bids {
		if p := float64(l.Price); p > best {
			best = p
		}
	}
	return best
}

// BestAsk is the lowest ask price, 0 when the ask side is empty.
func (b APIBook) BestAsk() float64 {
	var best float64
	for _, l := range b.Asks {
		p := float64(l.Price)
		if p > 0 && (best == 0 || p < best) {
			best = p
		}
	}
	return best
}

// APIPrice is the /price and /last-trade-price response.
type APIPrice struct {
	Price quote  `json:"price"`
	Side  string `json:"side,omitempty"`
}

// APIMidpoint is the /midpoint response.
type APIMidpoint struct {
	Mid quote `json:"mid"`
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// Gamma has served both snake_case and camelCase spellings of several
// fields, so both are decoded.
type APIMarket struct {
	ID               string     `json:"id"`
	ConditionID      string     `json:"condition_id"`
	ConditionIDCamel string     `json:"conditionId"`
	Question         string     `json:"question"`
	Slug             string     `json:"slug"`
	Category         string     `json:"category"`
	Active           *flexBool  `json:"active"`
	Closed           flexBool   `json:"closed"`
	Tokens           []Token    `json:"tokens"`
	Outcomes         string     `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices    string     `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	ClobTokenIDs     string     `json:"clobTokenIds"`  // JSON-encoded: e.g. "[\"123\",\"456\"]"
	Volume24hr       *flexFloat `json:"volume_24hr"`
	Volume24hrCamel  *flexFloat `json:"volume24hr"`
	Liquidity        flexFloat  `json:"liquidity"`
	EndDateISO       string     `json:"end_date_iso"`
	EndDateCamel     string     `json:"endDate"`

	decodeErr error // set when the listing could not be decoded
}

// DecodeErr reports why the listing could not be decoded, nil when it was.
func (m *APIMarket) DecodeErr() error {
	return m.decodeErr
}

// UnmarshalJSON accepts numeric ids.
func (m *APIMarket) UnmarshalJSON(data []byte) error {
	type plain APIMarket
	aux := struct {
		*plain
		ID flexString `json:"id"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.ID = string(aux.ID)
	return nil
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID flexString `json:"token_id"`
	Outcome string     `json:"outcome"`
	Price   flexFloat  `json:"price"`
	Winner  flexBool   `json:"winner"`
}

// MarketID returns the condition id when present, otherwise the numeric id.
func (m *APIMarket) MarketID() string {
	switch {
	case m.ConditionID != "":
		return m.ConditionID
	case m.ConditionIDCamel != "":
		return m.ConditionIDCamel
	default:
		return m.ID
	}
}

// Volume24h returns the trailing 24h volume, 0 when absent.
func (m *APIMarket) Volume24h() float64 {
	if m.Volume24hr != nil {
		return float64(*m.Volume24hr)
	}
	if m.Volume24hrCamel != nil {
		return float64(*m.Volume24hrCamel)
	}
	return 0
}

// IsActive defaults to true when the listing omits the field.
func (m *APIMarket) IsActive() bool {
	if m.Active == nil {
		return true
	}
	return bool(*m.Active)
}

// OutcomeTokens returns the token entries, deriving them from the
// JSON-encoded outcome arrays when the listing has no tokens array.
func (m *APIMarket) OutcomeTokens() []Token {
	if len(m.Tokens) > 0 || m.Outcomes == "" || m.ClobTokenIDs == "" {
		return m.Tokens
	}

	var outcomes, ids []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil
	}
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err != nil {
		return nil
	}
	var prices []flexFloat
	if m.OutcomePrices != "" {
		_ = json.Unmarshal([]byte(m.OutcomePrices), &prices)
	}

	n := min(len(outcomes), len(ids))
	tokens := make([]Token, 0, n)
	for i := 0; i < n; i++ {
		tok := Token{TokenID: flexString(ids[i]), Outcome: outcomes[i]}
		if i < len(prices) {
			tok.Price = prices[i]
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ToDomainMarket converts a listing to a domain.Market. Prices come from
// prices when given, otherwise from the listing's own token prices. It
// fails with domain.ErrMalformedListing when the listing could not be
// decoded or does not carry two tokens resolving to a YES and a NO outcome.
func (m *APIMarket) ToDomainMarket(prices *domain.PricePair) (domain.Market, error) {
	if m.decodeErr != nil {
		return domain.Market{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedListing, m.MarketID(), m.decodeErr)
	}
	tokens := m.OutcomeTokens()
	if len(tokens) < 2 {
		return domain.Market{}, fmt.Errorf("%w: %s has %d tokens", domain.ErrMalformedListing, m.MarketID(), len(tokens))
	}

	dm := domain.Market{
		ID:          m.MarketID(),
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Slug:        m.Slug,
		Category:    m.Category,
		Volume24h:   m.Volume24h(),
		Liquidity:   float64(m.Liquidity),
		Active:      m.IsActive() && !bool(m.Closed),
		UpdatedAt:   time.Now().UTC(),
	}
	if dm.ConditionID == "" {
		dm.ConditionID = m.ConditionIDCamel
	}

	var yesPrice, noPrice float64
	for _, tok := range tokens {
		switch {
		case strings.EqualFold(tok.Outcome, "yes"):
			dm.YesToken = string(tok.TokenID)
			yesPrice = float64(tok.Price)
		case strings.EqualFold(tok.Outcome, "no"):
			dm.NoToken = string(tok.TokenID)
			noPrice = float64(tok.Price)
		}
	}
	if dm.YesToken == "" || dm.NoToken == "" {
		return domain.Market{}, fmt.Errorf("%w: %s lacks a YES/NO token pair", domain.ErrMalformedListing, dm.ID)
	}

	if prices != nil {
		dm.YesPrice, dm.NoPrice = prices.Yes, prices.No
	} else {
		dm.YesPrice, dm.NoPrice = yesPrice, noPrice
	}

	end := m.EndDateISO
	if end == "" {
		end = m.EndDateCamel
	}
	dm.EndDate = ParseEndDate(end)

	return dm, nil
}

// ParseEndDate parses an ISO-8601 end date. A trailing "Z" is treated as
// "+00:00". Date-only values are accepted. Anything else yields nil.
func ParseEndDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
