package domain

import "time"

// OrderType is the execution policy of an order.
type OrderType string

const OrderTypeLimit OrderType = "limit"

// OrderStatus tracks the order lifecycle. Pending moves to exactly one of
// the terminal states and never changes again.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusFailed
}

// Order is a request to trade a quantity of one outcome token at a limit price.
type Order struct {
	ID          string
	MarketID    string
	TokenID     string
	Side        Side
	Outcome     Outcome
	Price       float64 // limit price per share
	Size        float64 // shares
	Type        OrderType
	Status      OrderStatus
	FilledSize  float64
	FilledPrice float64
	Reason      string // rejection reason when failed
	CreatedAt   time.Time
	ExecutedAt  *time.Time
}

// NewLimitOrder builds a pending limit order.
func NewLimitOrder(marketID, tokenID string, side Side, outcome Outcome, price, size float64) Order {
	return Order{
		MarketID:  marketID,
		TokenID:   tokenID,
		Side:      side,
		Outcome:   outcome,
		Price:     price,
		Size:      size,
		Type:      OrderTypeLimit,
		Status:    OrderStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Notional is price times size.
func (o Order) Notional() float64 {
	return o.Price * o.Size
}

// IsFilled reports whether the order completed.
func (o Order) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

// FillPct is the filled share of the requested size.
func (o Order) FillPct() float64 {
	if o.Size == 0 {
		return 0
	}
	return o.FilledSize / o.Size
}
