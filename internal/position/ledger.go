// Package position tracks per-symbol long/short holdings in memory.
// The poll loop refreshes the ledger from the gateway's authoritative
// snapshot once per tick and patches it optimistically right after
// confirmed submissions, so a burst of signals inside one tick sees
// the exposure already committed by earlier signals.
package position

import (
	"sync"

	"main/internal/gateway"
	"main/internal/model"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

var ErrUnknownDirection = errors.New("position: unknown trade direction")

// SideOf resolves the position side a direction token works against:
// BUY and SELL_CLOSE inspect the long book, SELL and BUY_CLOSE the
// short book.
func SideOf(action model.Action) (gateway.Side, error) {
	switch action {
	case model.ActionBuy, model.ActionSellClose:
		return gateway.SideLong, nil
	case model.ActionSell, model.ActionBuyClose:
		return gateway.SideShort, nil
	default:
		return 0, ErrUnknownDirection
	}
}

type book struct {
	long  int
	short int
}

// Holding is the view the order director needs to resolve close
// offsets: the total opposite-side quantity and, when the venue
// distinguishes it, the yesterday-acquired part.
type Holding struct {
	Total     int
	Yesterday int
	HasSplit  bool
}

// Snapshotter provides the gateway's position snapshot. Only the
// snapshot method is needed, so a full Gateway satisfies it.
type Snapshotter interface {
	Positions() []gateway.PositionReport
}

// Ledger is the in-memory position book. Safe for use from the poll
// loop and gateway callback context concurrently.
type Ledger struct {
	mu      sync.Mutex
	src     Snapshotter
	books   map[string]*book
	reports []gateway.PositionReport
}

// NewLedger creates a ledger. src may be nil, in which case reads skip
// the gateway refresh and serve the locally applied state.
func NewLedger(src Snapshotter) *Ledger {
	return &Ledger{
		src:   src,
		books: make(map[string]*book),
	}
}

// Refresh replaces the book with the gateway snapshot, totalling
// today+yesterday volume per direction.
func (l *Ledger) Refresh() {
	if l.src == nil {
		return
	}
	reports := l.src.Positions()

	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.books {
		delete(l.books, k)
	}
	l.reports = reports
	for _, r := range reports {
		b := l.book(r.Symbol)
		switch r.Side {
		case gateway.SideLong:
			b.long = r.Volume
		case gateway.SideShort:
			b.short = r.Volume
		}
	}
}

// must be called with l.mu held
func (l *Ledger) book(symbol string) *book {
	b, ok := l.books[symbol]
	if !ok {
		b = &book{}
		l.books[symbol] = b
	}
	return b
}

// Get returns the held quantity on the side the direction resolves to.
// Reads serve the last refreshed snapshot plus any optimistic patches
// applied since; the poll loop refreshes once per tick.
func (l *Ledger) Get(symbol string, action model.Action) (int, error) {
	side, err := SideOf(action)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.books[symbol]
	if !ok {
		return 0, nil
	}
	if side == gateway.SideLong {
		return b.long, nil
	}
	return b.short, nil
}

// HoldingFor returns the opposite-side holding a close-type direction
// works against, with the yesterday split when the snapshot has one.
func (l *Ledger) HoldingFor(symbol string, action model.Action) (Holding, error) {
	total, err := l.Get(symbol, action)
	if err != nil {
		return Holding{}, err
	}
	side, _ := SideOf(action)

	l.mu.Lock()
	defer l.mu.Unlock()
	h := Holding{Total: total}
	for _, r := range l.reports {
		if r.Symbol == symbol && r.Side == side {
			h.Yesterday = r.YdVolume
			h.HasSplit = true
			break
		}
	}
	return h, nil
}

// ApplyOpen adds freshly opened quantity after a confirmed submission.
func (l *Ledger) ApplyOpen(symbol string, action model.Action, volume int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.book(symbol)
	switch action {
	case model.ActionBuy:
		b.long += volume
		logs.Infof("ledger open: %s LONG +%d = %d", symbol, volume, b.long)
	case model.ActionSell:
		b.short += volume
		logs.Infof("ledger open: %s SHORT +%d = %d", symbol, volume, b.short)
	default:
		logs.Warnf("ledger open ignored for direction %s", action)
	}
}

// ApplyClose subtracts closed quantity, clamped at zero. Rejecting an
// over-close is the engine's job before submission; the ledger never
// goes negative.
func (l *Ledger) ApplyClose(symbol string, action model.Action, volume int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.book(symbol)
	switch action {
	case model.ActionBuyClose:
		b.short = max(0, b.short-volume)
		logs.Infof("ledger close: %s SHORT -%d = %d", symbol, volume, b.short)
	case model.ActionSellClose:
		b.long = max(0, b.long-volume)
		logs.Infof("ledger close: %s LONG -%d = %d", symbol, volume, b.long)
	default:
		logs.Warnf("ledger close ignored for direction %s", action)
	}
}

// CheckLimit validates a prospective order: opens must not push the
// side above maxPosition, closes must not exceed the current holding.
func (l *Ledger) CheckLimit(symbol string, action model.Action, volume, maxPosition int) bool {
	current, err := l.Get(symbol, action)
	if err != nil {
		logs.Errorf("check limit: %+v", err)
		return false
	}

	switch {
	case action.Opens():
		if current+volume > maxPosition {
			logs.Warnf("position limit exceeded: %s %s current:%d add:%d max:%d",
				symbol, action, current, volume, maxPosition)
			return false
		}
		return true
	case action.Closes():
		if current < volume {
			logs.Warnf("insufficient holding to close: %s %s current:%d close:%d",
				symbol, action, current, volume)
			return false
		}
		return true
	default:
		return false
	}
}
