// Package gateway defines the narrow contract the engine uses to talk
// to the execution gateway: synchronous order submission, market price
// and position snapshots, and asynchronous order/trade/account
// callbacks. Venue connectivity itself lives outside this module.
package gateway

import "context"

// Side long, short
type Side uint8

const (
	_side_beg Side = iota
	SideLong
	SideShort
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

func (s Side) String() string {
	switch s {
	case SideLong:
		return "LONG"
	case SideShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side, used to locate the holding a close
// order works against.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return s
	}
}

// Offset open, close, close today, close yesterday
type Offset uint8

const (
	_offset_beg Offset = iota
	OffsetOpen
	OffsetClose
	OffsetCloseToday
	OffsetCloseYesterday
	_offset_end
)

func (o Offset) IsAvailable() bool {
	return o > _offset_beg && o < _offset_end
}

func (o Offset) String() string {
	switch o {
	case OffsetOpen:
		return "OPEN"
	case OffsetClose:
		return "CLOSE"
	case OffsetCloseToday:
		return "CLOSE_TODAY"
	case OffsetCloseYesterday:
		return "CLOSE_YESTERDAY"
	default:
		return "UNKNOWN"
	}
}

// OrderType limit
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeLimit
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

// OrderRequest is a normalized order handed to the gateway.
type OrderRequest struct {
	Symbol string
	Venue  string
	Price  float64
	Volume int
	Side   Side
	Offset Offset
	Type   OrderType
}

// Ack is the gateway's synchronous submission result. A zero error id
// with a non-empty order id means the order was accepted for routing.
type Ack struct {
	OrderID  string
	ErrorID  int
	ErrorMsg string
}

func (a Ack) OK() bool {
	return a.ErrorID == 0 && a.OrderID != ""
}

// PositionReport is one entry of the gateway's authoritative position
// snapshot. Volume is the total held quantity, YdVolume the part
// acquired before today.
type PositionReport struct {
	Symbol   string
	Side     Side
	Volume   int
	YdVolume int
}

// Gateway order status tokens as delivered by order callbacks.
const (
	OrderStatusSubmitting = "SUBMITTING"
	OrderStatusNotTraded  = "NOTTRADED"
	OrderStatusPartTraded = "PARTTRADED"
	OrderStatusAllTraded  = "ALLTRADED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusRejected   = "REJECTED"
)

// OrderEvent reports an order lifecycle change.
type OrderEvent struct {
	OrderID string
	Symbol  string
	Status  string
	Volume  int
	Traded  int
}

// TradeEvent reports a fill.
type TradeEvent struct {
	OrderID string
	Symbol  string
	Side    Side
	Offset  Offset
	Price   float64
	Volume  int
}

// AccountEvent reports account balances.
type AccountEvent struct {
	Balance        float64
	Available      float64
	PositionProfit float64
}

// Handler receives gateway callbacks. Delivery is fire-and-forget on
// the gateway's own execution context; no acknowledgement is expected.
type Handler interface {
	OnOrder(OrderEvent)
	OnTrade(TradeEvent)
	OnAccount(AccountEvent)
}

// Gateway is the execution gateway surface consumed by the engine.
type Gateway interface {
	// Submit routes an order and returns its synchronous result.
	Submit(ctx context.Context, req OrderRequest) (Ack, error)
	// LastPrice returns the last traded price, if a tick has been seen.
	LastPrice(symbol string) (float64, bool)
	// Positions returns the current position snapshot.
	Positions() []PositionReport
	// Subscribe registers interest in a symbol's market data.
	Subscribe(symbol string) error
}
