// Package pnl reconstructs realized profit from filled signals by
// pairing opens with closes in time order.
package pnl

import (
	"math"
	"time"

	"main/internal/contract"
	"main/internal/model"
)

// MatchedTrade is one completed open/close round trip. Derived only;
// the core never persists it.
type MatchedTrade struct {
	SignalID    int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Direction   string    `json:"direction"`
	OpenTime    time.Time `json:"openTime"`
	CloseTime   time.Time `json:"closeTime"`
	OpenPrice   float64   `json:"openPrice"`
	ClosePrice  float64   `json:"closePrice"`
	Volume      int       `json:"volume"`
	PointProfit float64   `json:"pointProfit"`
	Fee         float64   `json:"fee"`
	Profit      float64   `json:"profit"`
}

type openSlot struct {
	id      int64
	side    string
	price   float64
	time    time.Time
	volume  int
	openFee float64
}

// Reconstruct walks filled signals in the given (time-ascending) order
// and emits a MatchedTrade for each open that a later close pairs
// with. At most one open is tracked per symbol: a second open while
// one is held is ignored and a close with no open is skipped. This
// no-netting limitation is deliberate; generalizing it would change
// matching semantics.
func Reconstruct(ref *contract.Reference, signals []model.Signal) []MatchedTrade {
	trades := make([]MatchedTrade, 0, len(signals)/2)
	open := make(map[string]openSlot)

	for _, sig := range signals {
		info, _ := ref.Lookup(sig.Symbol)

		switch {
		case sig.Action == model.ActionBuy:
			if _, held := open[sig.Symbol]; !held {
				open[sig.Symbol] = newSlot(sig, "LONG", info)
			}
		case sig.Action == model.ActionSell:
			if _, held := open[sig.Symbol]; !held {
				open[sig.Symbol] = newSlot(sig, "SHORT", info)
			}
		case sig.Action.Closes():
			slot, held := open[sig.Symbol]
			if !held {
				continue
			}
			trades = append(trades, match(slot, sig, info))
			delete(open, sig.Symbol)
		}
	}
	return trades
}

func newSlot(sig model.Signal, side string, info contract.Info) openSlot {
	return openSlot{
		id:      sig.ID,
		side:    side,
		price:   sig.Price,
		time:    sig.Timestamp,
		volume:  sig.Volume,
		openFee: info.OpenFee * float64(sig.Volume),
	}
}

func match(slot openSlot, closing model.Signal, info contract.Info) MatchedTrade {
	var pointProfit float64
	if slot.side == "LONG" {
		pointProfit = closing.Price - slot.price
	} else {
		pointProfit = slot.price - closing.Price
	}

	fee := slot.openFee + info.CloseFee*float64(slot.volume)
	profit := pointProfit*info.Multiplier*float64(slot.volume) - fee

	return MatchedTrade{
		SignalID:    slot.id,
		Symbol:      closing.Symbol,
		Direction:   slot.side,
		OpenTime:    slot.time,
		CloseTime:   closing.Timestamp,
		OpenPrice:   slot.price,
		ClosePrice:  closing.Price,
		Volume:      slot.volume,
		PointProfit: round2(pointProfit),
		Fee:         round2(fee),
		Profit:      round2(profit),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
