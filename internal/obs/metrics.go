// Package obs exposes Prometheus metrics for the trader:
//
//   - trader_feed_retries_total            – stream reconnect attempts
//   - trader_ticks_total{kind}             – trade ticks by ingest outcome
//   - trader_bars_total                    – bar events applied
//   - trader_orders_total{side}            – orders sent through the gateway
//   - trader_trade_events_total{event}     – trade-log events (ENTRY/EXIT/...)
//   - trader_open_positions                – currently held concurrency slots
//   - trader_monitor_errors_total{symbol}  – swallowed per-iteration failures
//
// Registered in init() and served by the /metrics handler in cmd/trader.
package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	feedRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trader_feed_retries_total",
		Help: "Stream reconnect attempts",
	})

	ticks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_ticks_total",
		Help: "Trade ticks by ingest outcome",
	}, []string{"kind"}) // kind: confirmed|pullback|odd_lot|around_exit|dropped

	bars = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trader_bars_total",
		Help: "Bar events applied to the shared market state",
	})

	orders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_total",
		Help: "Orders sent through the gateway",
	}, []string{"side"})

	tradeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_trade_events_total",
		Help: "Trade log events",
	}, []string{"event"})

	openPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trader_open_positions",
		Help: "Currently held concurrency slots",
	})

	monitorErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_monitor_errors_total",
		Help: "Swallowed per-iteration monitor failures",
	}, []string{"symbol"})
)

func init() {
	prometheus.MustRegister(
		feedRetries,
		ticks,
		bars,
		orders,
		tradeEvents,
		openPositions,
		monitorErrors,
	)
}

// Tick outcomes recorded by the ingest handler.
const (
	TickConfirmed  = "confirmed"
	TickPullback   = "pullback"
	TickOddLot     = "odd_lot"
	TickAroundExit = "around_exit"
	TickDropped    = "dropped"
)

func IncFeedRetry() { feedRetries.Inc() }

func IncTick(kind string) { ticks.WithLabelValues(kind).Inc() }

func IncBar() { bars.Inc() }

func IncOrder(side string) { orders.WithLabelValues(side).Inc() }

func IncTradeEvent(event string) { tradeEvents.WithLabelValues(event).Inc() }

func SetOpenPositions(n int) { openPositions.Set(float64(n)) }

func IncMonitorError(symbol string) { monitorErrors.WithLabelValues(symbol).Inc() }

// Handler serves the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
