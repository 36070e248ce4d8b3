/*
Ingest consumes raw trade/bar events from the feed transport and maintains
the shared market state, plus the stream supervisor that keeps the
transport alive.

Only confirmed ticks reach the shared state: odd lots are filtered out, and
above the entry price a short run of pull-back ticks is tracked so noise
right after a breakout does not whip the monitors.
*/
package ingest

import (
	"fmt"
	"sync"

	"main/internal/journal"
	"main/internal/market"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"

	"github.com/yanun0323/logs"
)

const (
	// DefaultMinLotSize drops trades below this size as odd lots.
	DefaultMinLotSize = 100
	// DefaultPullbackLimit ends the post-entry tracked run after this many
	// pull-back ticks.
	DefaultPullbackLimit = 50
)

// HandlerConfig tunes the tick heuristics.
type HandlerConfig struct {
	MinLotSize    float64
	PullbackLimit int
}

func (c HandlerConfig) withDefaults() HandlerConfig {
	if c.MinLotSize <= 0 {
		c.MinLotSize = DefaultMinLotSize
	}
	if c.PullbackLimit <= 0 {
		c.PullbackLimit = DefaultPullbackLimit
	}
	return c
}

// Handler applies feed events to the shared market state. OnTrade/OnBar are
// called from the transport goroutine and must not block it for long; all
// writes here are in-memory, and log appends go to local files whose
// failures are swallowed.
type Handler struct {
	cfg    HandlerConfig
	setups ops.Source
	state  *market.State
	stream *journal.StreamLog

	mu        sync.Mutex
	lastTick  map[string]float64 // tracked run reference price per symbol
	tickCount map[string]int
	ended     map[string]bool // pull-back tracking finished per symbol
}

// NewHandler wires a handler. The stream log may be nil to disable the
// per-symbol side channel.
func NewHandler(cfg HandlerConfig, setups ops.Source, state *market.State, stream *journal.StreamLog) *Handler {
	return &Handler{
		cfg:       cfg.withDefaults(),
		setups:    setups,
		state:     state,
		stream:    stream,
		lastTick:  make(map[string]float64),
		tickCount: make(map[string]int),
		ended:     make(map[string]bool),
	}
}

// OnTrade classifies one tick and updates the latest price when confirmed.
//
// Classification, in order:
//   - unknown symbol: dropped silently (no setup, no action)
//   - size below the odd-lot minimum: logged, never updates state
//   - price above entry: first tick starts a tracked run (gap-up counts as
//     confirmed); a tick strictly between the stop and the run's reference
//     price is a pull-back and only counts toward the limit; anything else
//     is confirmed and moves the reference; at the limit, tracking ends and
//     every later above-entry tick is confirmed
//   - price at or below the stop: always confirmed ("around exit")
//   - anything between stop and entry: ignored
func (h *Handler) OnTrade(t model.Trade) {
	setup, ok := h.setups.Lookup(t.Symbol)
	if !ok {
		obs.IncTick(obs.TickDropped)
		return
	}

	if t.Size < h.cfg.MinLotSize {
		obs.IncTick(obs.TickOddLot)
		h.logTick("ODD LOT", t)
		return
	}

	switch {
	case t.Price > setup.EntryPrice:
		h.onAboveEntry(setup, t)
	case t.Price <= setup.StopLoss:
		h.state.SetLatestPrice(t.Symbol, t.Price)
		obs.IncTick(obs.TickAroundExit)
		h.logTick("AROUND EXIT", t)
	default:
		// Between stop and entry: no signal either way.
		obs.IncTick(obs.TickDropped)
	}
}

func (h *Handler) onAboveEntry(setup model.Setup, t model.Trade) {
	h.mu.Lock()
	if h.ended[t.Symbol] {
		h.mu.Unlock()
		h.state.SetLatestPrice(t.Symbol, t.Price)
		obs.IncTick(obs.TickConfirmed)
		h.logTick("CONFIRMED TICK", t)
		return
	}

	ref, tracked := h.lastTick[t.Symbol]
	pullback := tracked && t.Price > setup.StopLoss && t.Price < ref
	var (
		count    int
		finished bool
	)
	if pullback {
		h.tickCount[t.Symbol]++
		count = h.tickCount[t.Symbol]
		if count >= h.cfg.PullbackLimit {
			delete(h.lastTick, t.Symbol)
			h.ended[t.Symbol] = true
			finished = true
		}
	} else {
		h.lastTick[t.Symbol] = t.Price
	}
	h.mu.Unlock()

	if pullback {
		obs.IncTick(obs.TickPullback)
		h.logTick(fmt.Sprintf(">ENTRY - %d/%d", count, h.cfg.PullbackLimit), t)
	} else {
		h.state.SetLatestPrice(t.Symbol, t.Price)
		obs.IncTick(obs.TickConfirmed)
		h.logTick("CONFIRMED TICK", t)
	}
	if finished {
		h.logTick(">ENTRY MONITORING ENDED", t)
	}
}

// OnBar appends one bar to the symbol's rolling window and VWAP history.
func (h *Handler) OnBar(b model.Bar) {
	if _, ok := h.setups.Lookup(b.Symbol); !ok {
		return
	}

	h.state.AppendBar(b.Symbol, market.BarEntry{
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
		VWAP:      b.VWAP,
		Timestamp: b.Timestamp,
	})
	obs.IncBar()
}

func (h *Handler) logTick(tag string, t model.Trade) {
	if h.stream == nil {
		return
	}
	if err := h.stream.Tick(tag, t); err != nil {
		logs.Warnf("price stream log append, err: %+v", err)
	}
}
