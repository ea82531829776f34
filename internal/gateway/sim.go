package gateway

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"main/internal/bus"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

var ErrNoOrder = errors.New("sim gateway: unknown order id")

// Tick is a market data update in the feed's wire shape.
type Tick struct {
	Symbol string          `json:"symbol"`
	Last   decimal.Decimal `json:"last"`
	Time   int64           `json:"time"`
}

type simEvent struct {
	order   *OrderEvent
	trade   *TradeEvent
	account *AccountEvent
}

// Sim is an in-process Gateway for tests and paper runs. It accepts
// every order, assigns ids in the venue's ORDER_<ms>_<seq> format and
// replays callbacks to the attached handler, either inline or through
// a bounded queue on a separate goroutine when started.
type Sim struct {
	mu         sync.Mutex
	seq        int64
	prices     map[string]float64
	positions  []PositionReport
	orders     map[string]OrderRequest
	reqLog     []OrderRequest
	orderIDs   []string
	subscribed map[string]struct{}
	failNext   *Ack

	handler Handler
	queue   *bus.Queue[simEvent]
	running atomic.Bool
}

// NewSim creates an empty sim gateway.
func NewSim() *Sim {
	return &Sim{
		prices:     make(map[string]float64),
		orders:     make(map[string]OrderRequest),
		subscribed: make(map[string]struct{}),
		queue:      bus.NewQueue[simEvent](256),
	}
}

// Attach registers the callback handler.
func (s *Sim) Attach(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Start moves callback delivery onto its own goroutine, mimicking the
// real gateway's asynchronous delivery context.
func (s *Sim) Start(ctx context.Context) {
	if s.running.Swap(true) {
		return
	}
	go s.queue.Run(ctx, s.dispatch)
}

func (s *Sim) dispatch(e simEvent) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		return
	}
	switch {
	case e.order != nil:
		h.OnOrder(*e.order)
	case e.trade != nil:
		h.OnTrade(*e.trade)
	case e.account != nil:
		h.OnAccount(*e.account)
	}
}

func (s *Sim) deliver(e simEvent) {
	if !s.running.Load() {
		s.dispatch(e)
		return
	}
	if err := s.queue.TryPublish(e); err != nil {
		logs.Warnf("drop sim gateway callback, err: %+v", err)
	}
}

// Submit accepts the order unless a failure was staged via FailNext.
func (s *Sim) Submit(_ context.Context, req OrderRequest) (Ack, error) {
	s.mu.Lock()
	if s.failNext != nil {
		ack := *s.failNext
		s.failNext = nil
		s.mu.Unlock()
		return ack, nil
	}
	s.seq++
	id := fmt.Sprintf("ORDER_%d_%d", time.Now().UnixMilli(), s.seq)
	s.orders[id] = req
	s.reqLog = append(s.reqLog, req)
	s.orderIDs = append(s.orderIDs, id)
	s.mu.Unlock()

	s.deliver(simEvent{order: &OrderEvent{
		OrderID: id,
		Symbol:  req.Symbol,
		Status:  OrderStatusSubmitting,
		Volume:  req.Volume,
	}})
	return Ack{OrderID: id}, nil
}

// LastPrice returns the last applied tick price.
func (s *Sim) LastPrice(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	px, ok := s.prices[symbol]
	return px, ok
}

// Positions returns the staged position snapshot.
func (s *Sim) Positions() []PositionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PositionReport, len(s.positions))
	copy(out, s.positions)
	return out
}

// Subscribe records the subscription.
func (s *Sim) Subscribe(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed[symbol] = struct{}{}
	return nil
}

// Subscribed reports whether a symbol was subscribed.
func (s *Sim) Subscribed(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribed[symbol]
	return ok
}

// Requests returns every submitted request in submission order.
func (s *Sim) Requests() []OrderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OrderRequest, len(s.reqLog))
	copy(out, s.reqLog)
	return out
}

// OrderIDs returns the assigned order ids in submission order.
func (s *Sim) OrderIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.orderIDs))
	copy(out, s.orderIDs)
	return out
}

// SetPositions stages the snapshot returned by Positions.
func (s *Sim) SetPositions(reports ...PositionReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = reports
}

// SetLastPrice stages a last traded price directly.
func (s *Sim) SetLastPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// ApplyTick ingests a feed-shaped tick.
func (s *Sim) ApplyTick(tick Tick) error {
	px, err := strconv.ParseFloat(tick.Last.String(), 64)
	if err != nil {
		return errors.Wrap(err, "parse tick price")
	}
	s.SetLastPrice(tick.Symbol, px)
	return nil
}

// FailNext makes the next Submit return a structured error ack.
func (s *Sim) FailNext(errorID int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = &Ack{ErrorID: errorID, ErrorMsg: msg}
}

// EmitOrderStatus replays an order callback for a known order.
func (s *Sim) EmitOrderStatus(orderID, status string) error {
	s.mu.Lock()
	req, ok := s.orders[orderID]
	s.mu.Unlock()
	if !ok {
		return ErrNoOrder
	}
	traded := 0
	if status == OrderStatusAllTraded {
		traded = req.Volume
	}
	s.deliver(simEvent{order: &OrderEvent{
		OrderID: orderID,
		Symbol:  req.Symbol,
		Status:  status,
		Volume:  req.Volume,
		Traded:  traded,
	}})
	return nil
}

// Fill marks an order fully traded: one trade callback followed by an
// ALLTRADED order callback, the order the venue delivers them in.
func (s *Sim) Fill(orderID string) error {
	s.mu.Lock()
	req, ok := s.orders[orderID]
	s.mu.Unlock()
	if !ok {
		return ErrNoOrder
	}
	s.deliver(simEvent{trade: &TradeEvent{
		OrderID: orderID,
		Symbol:  req.Symbol,
		Side:    req.Side,
		Offset:  req.Offset,
		Price:   req.Price,
		Volume:  req.Volume,
	}})
	return s.EmitOrderStatus(orderID, OrderStatusAllTraded)
}

// ReportAccount replays an account callback.
func (s *Sim) ReportAccount(balance, available, positionProfit float64) {
	s.deliver(simEvent{account: &AccountEvent{
		Balance:        balance,
		Available:      available,
		PositionProfit: positionProfit,
	}})
}
