// Package reconcile consumes gateway order/trade/account callbacks
// and advances signal rows. It is passive: the poll loop never calls
// it, and every transition is an atomic conditional update keyed by
// order id, so replays and out-of-order delivery are harmless.
package reconcile

import (
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/store"

	"github.com/yanun0323/logs"
)

// Reconciler implements gateway.Handler over the signal store.
type Reconciler struct {
	store *store.Store
}

func New(st *store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// StatusFor maps a gateway order status token onto the signal status
// space. Unrecognized tokens collapse to failed.
func StatusFor(gwStatus string) model.Status {
	switch gwStatus {
	case gateway.OrderStatusSubmitting, gateway.OrderStatusNotTraded:
		return model.StatusSubmitted
	case gateway.OrderStatusPartTraded:
		return model.StatusPartial
	case gateway.OrderStatusAllTraded:
		return model.StatusFilled
	case gateway.OrderStatusCancelled:
		return model.StatusCancelled
	case gateway.OrderStatusRejected:
		return model.StatusRejected
	default:
		return model.StatusFailed
	}
}

// OnOrder advances the owning row. Terminal statuses also stamp
// processed/process_time inside the same conditional update; a row
// that is already terminal is left untouched, so applying the same
// terminal event twice changes nothing after the first application.
func (r *Reconciler) OnOrder(ev gateway.OrderEvent) {
	status := StatusFor(ev.Status)
	updated, err := r.store.TransitionByOrderID(ev.OrderID, status)
	if err != nil {
		logs.Errorf("order callback %s -> %s: %+v", ev.OrderID, status, err)
		return
	}
	if !updated {
		logs.Debugf("order callback %s -> %s ignored (no non-terminal row)", ev.OrderID, status)
		return
	}
	logs.Infof("order update: %s %s status:%s traded:%d/%d",
		ev.OrderID, ev.Symbol, status, ev.Traded, ev.Volume)
}

// OnTrade logs the fill. Row transitions come from order callbacks,
// which the venue sends alongside every trade.
func (r *Reconciler) OnTrade(ev gateway.TradeEvent) {
	logs.Infof("trade update: %s %s %s %s price:%v volume:%d",
		ev.OrderID, ev.Symbol, ev.Side, ev.Offset, ev.Price, ev.Volume)
}

// OnAccount keeps the persisted account snapshot current. Equity is
// balance plus floating position profit, as the venue reports it.
func (r *Reconciler) OnAccount(ev gateway.AccountEvent) {
	acc := model.Account{
		Balance:        ev.Balance,
		Equity:         ev.Balance + ev.PositionProfit,
		Available:      ev.Available,
		PositionProfit: ev.PositionProfit,
	}
	if err := r.store.UpsertAccount(acc); err != nil {
		logs.Errorf("account callback: %+v", err)
	}
}
