// Package engine runs the signal execution loop: it drains pending
// signals once per tick, applies price-sanity and exposure checks,
// submits resolved orders to the gateway and writes the outcome back.
// A signal is processed at most once because its pending status flips
// on the very first attempt; after submission the row's fate belongs
// to the reconciler.
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"main/internal/director"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/position"
	"main/internal/store"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

// Config sets the loop cadence and check thresholds.
type Config struct {
	Tick             time.Duration
	ResubscribeEvery time.Duration
	ErrorBackoff     time.Duration
	SubmitTimeout    time.Duration
	PriceTolerance   float64 // relative, e.g. 0.002; 0 disables the check
	MaxPosition      int
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.ResubscribeEvery <= 0 {
		c.ResubscribeEvery = time.Minute
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 5 * time.Second
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 15 * time.Second
	}
	if c.MaxPosition <= 0 {
		c.MaxPosition = 2
	}
	return c
}

// Engine owns the poll loop. All collaborators are injected at
// construction; nothing is looked up globally.
type Engine struct {
	cfg      Config
	store    *store.Store
	gw       gateway.Gateway
	ledger   *position.Ledger
	director *director.Director
	metrics  *obs.Metrics

	subscribed    map[string]struct{}
	lastSubscribe time.Time
}

func New(cfg Config, st *store.Store, gw gateway.Gateway, ledger *position.Ledger, dir *director.Director, metrics *obs.Metrics) *Engine {
	return &Engine{
		cfg:        cfg.withDefaults(),
		store:      st,
		gw:         gw,
		ledger:     ledger,
		director:   dir,
		metrics:    metrics,
		subscribed: make(map[string]struct{}),
	}
}

// Run polls until the context is cancelled or the process shuts down.
// A tick-level error backs the loop off without killing it.
func (e *Engine) Run(ctx context.Context) {
	logs.Info("signal engine started")
	for {
		wait := e.cfg.Tick
		if err := e.Tick(ctx); err != nil {
			logs.Errorf("signal loop: %+v", err)
			e.metrics.LoopErrors.Inc()
			wait = e.cfg.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			logs.Info("signal engine stopped")
			return
		case <-sys.Shutdown():
			logs.Info("signal engine stopped")
			return
		case <-time.After(wait):
		}
	}
}

// Tick runs one poll cycle: a periodic re-subscription pass, then the
// pending signals oldest first.
func (e *Engine) Tick(ctx context.Context) error {
	if time.Since(e.lastSubscribe) >= e.cfg.ResubscribeEvery {
		e.resubscribe()
		e.lastSubscribe = time.Now()
	}

	signals, err := e.store.Pending()
	if err != nil {
		return errors.Wrap(err, "drain pending signals")
	}
	if len(signals) > 0 {
		e.ledger.Refresh()
	}
	for _, sig := range signals {
		if err := e.process(ctx, sig); err != nil {
			// Row untouched means the next tick retries it; once an
			// order id is set the reconciler owns the outcome.
			logs.Errorf("process signal %d: %+v", sig.ID, err)
		}
	}
	return nil
}

func (e *Engine) resubscribe() {
	symbols, err := e.store.PendingSymbols()
	if err != nil {
		logs.Errorf("resubscribe pass: %+v", err)
		return
	}
	for _, symbol := range symbols {
		if _, ok := e.subscribed[symbol]; ok {
			continue
		}
		if err := e.gw.Subscribe(symbol); err != nil {
			logs.Warnf("subscribe %s: %+v", symbol, err)
			continue
		}
		e.subscribed[symbol] = struct{}{}
		logs.Infof("subscribed market data: %s", symbol)
	}
}

func (e *Engine) process(ctx context.Context, sig model.Signal) error {
	e.metrics.SignalsProcessed.Inc()

	action := model.Action(strings.ToUpper(string(sig.Action)))
	volume := sig.Volume

	// A BUY under a SHORT strategy (or SELL under LONG) is a pure exit:
	// it closes the full opposite holding instead of opening.
	action, volume, err := e.applyStrategyGate(sig, action, volume)
	if err != nil {
		return err
	}
	if action == "" {
		return nil // gate finalized the row
	}

	if !action.IsAvailable() {
		e.metrics.SignalsFailed.Inc()
		return e.finalize(sig.ID, model.StatusFailed,
			fmt.Sprintf("invalid action: %s", sig.Action))
	}
	if volume <= 0 {
		e.metrics.SignalsFailed.Inc()
		return e.finalize(sig.ID, model.StatusFailed,
			fmt.Sprintf("invalid volume: %d", volume))
	}

	// Price sanity: permissive when no market price is available.
	if e.cfg.PriceTolerance > 0 {
		if market, ok := e.gw.LastPrice(sig.Symbol); ok && market > 0 {
			deviation := math.Abs(sig.Price-market) / market
			if deviation > e.cfg.PriceTolerance {
				e.metrics.SignalsPriceInvalid.Inc()
				logs.Warnf("price out of tolerance: %s signal:%v market:%v deviation:%.4f",
					sig.Symbol, sig.Price, market, deviation)
				return e.finalize(sig.ID, model.StatusPriceInvalid,
					fmt.Sprintf("price %.2f deviates %.2f%% from market %.2f",
						sig.Price, deviation*100, market))
			}
		}
	}

	if !e.ledger.CheckLimit(sig.Symbol, action, volume, e.cfg.MaxPosition) {
		e.metrics.SignalsRejected.Inc()
		msg := fmt.Sprintf("position limit exceeded (max %d)", e.cfg.MaxPosition)
		if action.Closes() {
			msg = "insufficient holding to close"
		}
		return e.finalize(sig.ID, model.StatusRejected, msg)
	}

	var holding position.Holding
	if action.Closes() {
		if holding, err = e.ledger.HoldingFor(sig.Symbol, action); err != nil {
			return err
		}
	}

	reqs, err := e.director.Resolve(sig.Symbol, sig.Price, volume, action, holding)
	if err != nil {
		// Resolve only fails on an unsupported direction token.
		e.metrics.SignalsFailed.Inc()
		return e.finalize(sig.ID, model.StatusFailed, err.Error())
	}

	return e.submitAll(ctx, sig, action, reqs)
}

// applyStrategyGate rewrites strategy-exit signals into closes of the
// full opposite holding. It returns an empty action when it already
// finalized the row.
func (e *Engine) applyStrategyGate(sig model.Signal, action model.Action, volume int) (model.Action, int, error) {
	strategy := strings.ToUpper(sig.Strategy)
	var gated model.Action
	switch {
	case strategy == "SHORT" && action == model.ActionBuy:
		gated = model.ActionBuyClose
	case strategy == "LONG" && action == model.ActionSell:
		gated = model.ActionSellClose
	default:
		return action, volume, nil
	}

	held, err := e.ledger.Get(sig.Symbol, gated)
	if err != nil {
		return "", 0, err
	}
	if held <= 0 {
		e.metrics.SignalsRejected.Inc()
		if err := e.finalize(sig.ID, model.StatusRejected, "no position to close"); err != nil {
			return "", 0, err
		}
		return "", 0, nil
	}
	logs.Infof("strategy %s gates %s %s into %s volume:%d",
		strategy, sig.Symbol, action, gated, held)
	return gated, held, nil
}

// submitAll sends every resolved request. Failure of any leg marks the
// whole signal failed; successful legs have already moved the ledger.
func (e *Engine) submitAll(ctx context.Context, sig model.Signal, action model.Action, reqs []gateway.OrderRequest) error {
	for _, req := range reqs {
		subCtx, cancel := context.WithTimeout(ctx, e.cfg.SubmitTimeout)
		ack, err := e.gw.Submit(subCtx, req)
		cancel()

		if err != nil || !ack.OK() {
			e.metrics.SignalsFailed.Inc()
			msg := ack.ErrorMsg
			if err != nil {
				msg = err.Error()
			}
			if msg == "" {
				msg = "gateway submission failed"
			}
			logs.Errorf("submit %s %s %s: %s", sig.Symbol, req.Side, req.Offset, msg)
			return e.finalize(sig.ID, model.StatusFailed, msg)
		}

		if _, err := e.store.MarkSubmitted(sig.ID, ack.OrderID); err != nil {
			return err
		}
		if action.Opens() {
			e.ledger.ApplyOpen(sig.Symbol, action, req.Volume)
		} else {
			e.ledger.ApplyClose(sig.Symbol, action, req.Volume)
		}
		logs.Infof("order submitted: %s %s %s price:%v volume:%d id:%s",
			sig.Symbol, req.Side, req.Offset, req.Price, req.Volume, ack.OrderID)
	}

	e.metrics.SignalsSubmitted.Inc()
	return nil
}

func (e *Engine) finalize(id int64, status model.Status, message string) error {
	updated, err := e.store.Finalize(id, status, message)
	if err != nil {
		return err
	}
	if !updated {
		logs.Debugf("finalize %d -> %s skipped, row already terminal", id, status)
	}
	return nil
}
