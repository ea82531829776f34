// Package obs exports the engine's counters.
package obs

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts signal outcomes and loop health.
type Metrics struct {
	SignalsProcessed    prometheus.Counter
	SignalsSubmitted    prometheus.Counter
	SignalsRejected     prometheus.Counter
	SignalsPriceInvalid prometheus.Counter
	SignalsFailed       prometheus.Counter
	LoopErrors          prometheus.Counter
}

// NewMetrics builds and registers the counters. Pass a fresh registry
// in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignalsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_signals_processed_total",
			Help: "Signals picked up by the poll loop",
		}),
		SignalsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_signals_submitted_total",
			Help: "Signals successfully handed to the gateway",
		}),
		SignalsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_signals_rejected_total",
			Help: "Signals rejected by the exposure check",
		}),
		SignalsPriceInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_signals_price_invalid_total",
			Help: "Signals dropped by the price tolerance check",
		}),
		SignalsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_signals_failed_total",
			Help: "Signals that failed validation or submission",
		}),
		LoopErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_loop_errors_total",
			Help: "Poll loop ticks that ended in an error and backed off",
		}),
	}
	reg.MustRegister(
		m.SignalsProcessed, m.SignalsSubmitted, m.SignalsRejected,
		m.SignalsPriceInvalid, m.SignalsFailed, m.LoopErrors,
	)
	return m
}
