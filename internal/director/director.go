// Package director turns a validated signal into normalized order
// requests, resolving direction and open/close offset against the
// current holding.
package director

import (
	"main/internal/contract"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/position"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

var ErrInvalidDirection = errors.New("director: unsupported trade direction")

// Director builds order requests using the contract reference for
// venue resolution.
type Director struct {
	ref *contract.Reference
}

func New(ref *contract.Reference) *Director {
	return &Director{ref: ref}
}

// Resolve maps a direction to side/offset and returns the order
// requests to submit. Opens always produce exactly one request.
// Closes may produce two, one per offset bucket: yesterday-dated
// quantity is closed first because a same-day close-then-open round
// trip carries a fee penalty at the venue, the remainder is closed as
// today quantity. Without split information the venue's generic close
// is used.
func (d *Director) Resolve(symbol string, price float64, volume int, action model.Action, holding position.Holding) ([]gateway.OrderRequest, error) {
	info, found := d.ref.Lookup(symbol)
	if !found {
		logs.Warnf("no contract spec for %s, using default multiplier %v", symbol, info.Multiplier)
	}

	base := gateway.OrderRequest{
		Symbol: symbol,
		Venue:  info.Venue,
		Price:  price,
		Volume: volume,
		Type:   gateway.OrderTypeLimit,
	}

	switch action {
	case model.ActionBuy:
		base.Side = gateway.SideLong
		base.Offset = gateway.OffsetOpen
		return []gateway.OrderRequest{base}, nil
	case model.ActionSell:
		base.Side = gateway.SideShort
		base.Offset = gateway.OffsetOpen
		return []gateway.OrderRequest{base}, nil
	case model.ActionBuyClose:
		base.Side = gateway.SideLong
	case model.ActionSellClose:
		base.Side = gateway.SideShort
	default:
		return nil, errors.Wrap(ErrInvalidDirection, string(action))
	}

	return splitClose(base, holding), nil
}

func splitClose(base gateway.OrderRequest, holding position.Holding) []gateway.OrderRequest {
	if !holding.HasSplit {
		base.Offset = gateway.OffsetClose
		logs.Infof("close %s: no position split, using generic close", base.Symbol)
		return []gateway.OrderRequest{base}
	}

	out := make([]gateway.OrderRequest, 0, 2)
	remaining := base.Volume

	if holding.Yesterday > 0 {
		yd := min(remaining, holding.Yesterday)
		req := base
		req.Volume = yd
		req.Offset = gateway.OffsetCloseYesterday
		out = append(out, req)
		remaining -= yd
		logs.Infof("close %s: yesterday bucket %d", base.Symbol, yd)
	}
	if remaining > 0 {
		req := base
		req.Volume = remaining
		req.Offset = gateway.OffsetCloseToday
		out = append(out, req)
		logs.Infof("close %s: today bucket %d", base.Symbol, remaining)
	}
	return out
}
