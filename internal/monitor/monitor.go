/*
Monitor runs one polling state machine per symbol: wait for the price to
clear the entry, claim a concurrency slot, then ride the position until the
stop, the take-profit ratio, or the end-of-day cutoff closes it.

Per-iteration failures are logged, the symbol is unsubscribed best-effort,
and the loop keeps going; only setup removal, a terminal transition, or
cancellation ends the monitor.
*/
package monitor

import (
	"context"
	"time"

	"main/internal/journal"
	"main/internal/market"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/order"
	"main/internal/slot"
	"main/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Unsubscriber detaches one symbol from the live feed. Implemented by the
// stream supervisor; failures are handled inside, never returned.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, symbol string)
}

// Config tunes one monitor.
type Config struct {
	// PollInterval is the wait between iterations.
	PollInterval time.Duration
	// EODCutoff forcibly liquidates any open position.
	EODCutoff time.Time
	// LateEntryCutoff blocks new entries close to EOD.
	LateEntryCutoff time.Time
	// TakeProfitRatio is the pwap-ratio threshold that closes a winner.
	TakeProfitRatio float64
	// HighBandLower/HighBandUpper bound the hold loop's tolerance band
	// around the previous bar high; a new bar outside it re-evaluates.
	HighBandLower float64
	HighBandUpper float64
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.TakeProfitRatio <= 0 {
		c.TakeProfitRatio = 1.5
	}
	if c.HighBandLower <= 0 {
		c.HighBandLower = 0.985
	}
	if c.HighBandUpper <= 0 {
		c.HighBandUpper = 1.015
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Monitor owns the position state for one symbol. Never shared: exactly one
// goroutine runs it.
type Monitor struct {
	symbol  string
	cfg     Config
	setups  ops.Source
	state   *market.State
	slots   *slot.Manager
	gateway order.Gateway
	stream  Unsubscriber
	log     *journal.TradeLog

	inPosition bool
	qty        float64
}

func New(symbol string, cfg Config, setups ops.Source, state *market.State, slots *slot.Manager, gateway order.Gateway, stream Unsubscriber, log *journal.TradeLog) *Monitor {
	return &Monitor{
		symbol:  symbol,
		cfg:     cfg.withDefaults(),
		setups:  setups,
		state:   state,
		slots:   slots,
		gateway: gateway,
		stream:  stream,
		log:     log,
	}
}

// Run polls until the monitor reaches a terminal state or the context is
// cancelled. A position opened here is matched by exactly one slot
// release, including on cancellation teardown.
func (m *Monitor) Run(ctx context.Context) error {
	if setup, ok := m.setups.Lookup(m.symbol); ok {
		logs.Infof("[%s] monitoring, entry %g, stop %g", m.symbol, setup.EntryPrice, setup.StopLoss)
	}

	defer func() {
		if m.inPosition {
			m.releaseSlot()
		}
	}()

	for {
		done, err := m.step(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return err
			}
			// Swallow, detach from the feed, keep looping. A crashed
			// monitor must never take the process down.
			obs.IncMonitorError(m.symbol)
			logs.Errorf("[%s] iteration error: %+v", m.symbol, err)
			m.stream.Unsubscribe(ctx, m.symbol)
		}
		if done {
			return nil
		}
		if err := sleep(ctx, m.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// step runs one iteration. done reports a terminal transition.
func (m *Monitor) step(ctx context.Context) (done bool, err error) {
	setup, ok := m.setups.Lookup(m.symbol)
	if !ok {
		// Removed from the setups source: terminate without emitting any
		// further trade-log records. The slot still has to come back.
		logs.Infof("[%s] removed from setups, stopping monitor", m.symbol)
		if m.inPosition {
			m.releaseSlot()
			m.inPosition = false
		}
		return true, nil
	}

	price, ok := m.state.LatestPrice(m.symbol)
	if !ok {
		return false, nil
	}

	now := m.cfg.Now()
	if !now.Before(m.cfg.EODCutoff) {
		return m.stepEOD(ctx, price)
	}

	if !m.inPosition {
		return m.stepEntry(ctx, setup, price, now)
	}
	return m.stepPosition(ctx, setup, price)
}

func (m *Monitor) stepEOD(ctx context.Context, price float64) (bool, error) {
	if m.inPosition {
		if _, err := m.gateway.ClosePosition(ctx, m.symbol, m.qty, price); err != nil {
			// Position stays open; EOD is retried next iteration.
			return false, errors.Wrap(err, "eod close position")
		}
		obs.IncOrder(string(order.SideSell))
		logs.Infof("[%s] EOD, exit @ %g", m.symbol, price)
		m.appendRecord(journal.EventEODExit, m.qty, price)
		m.releaseSlot()
		m.inPosition = false
	}

	if err := m.log.Separator(); err != nil {
		logs.Warnf("[%s] trade log separator, err: %+v", m.symbol, err)
	}
	m.stream.Unsubscribe(ctx, m.symbol)
	return true, nil
}

func (m *Monitor) stepEntry(ctx context.Context, setup model.Setup, price float64, now time.Time) (bool, error) {
	if price <= setup.EntryPrice {
		return false, nil
	}
	if !now.Before(m.cfg.LateEntryCutoff) {
		// Too close to EOD to open anything new; idle until the cutoff.
		return false, nil
	}

	qty := setup.Quantity()
	if !m.slots.TryAcquire() {
		logs.Warnf("[%s] skipped @ %g, concurrent trade limit hit", m.symbol, price)
		m.appendRecord(journal.EventSkip, qty, price)
		m.stream.Unsubscribe(ctx, m.symbol)
		return true, nil
	}
	obs.SetOpenPositions(m.slots.InUse())

	if _, err := m.gateway.SubmitBuy(ctx, m.symbol, qty, price); err != nil {
		m.releaseSlot()
		return false, errors.Wrap(err, "submit buy")
	}

	m.inPosition = true
	m.qty = qty
	obs.IncOrder(string(order.SideBuy))
	logs.Infof("[%s] BUY %g @ %g", m.symbol, qty, price)
	m.appendRecord(journal.EventEntry, qty, price)
	return false, nil
}

func (m *Monitor) stepPosition(ctx context.Context, setup model.Setup, price float64) (bool, error) {
	if price < setup.StopLoss {
		if _, err := m.gateway.ClosePosition(ctx, m.symbol, m.qty, price); err != nil {
			return false, errors.Wrap(err, "stop-loss close position")
		}
		obs.IncOrder(string(order.SideSell))
		logs.Infof("[%s] STOP-LOSS hit, exiting @ %g", m.symbol, price)
		m.appendRecord(journal.EventExit, m.qty, price)
		m.releaseSlot()
		m.inPosition = false
		return true, nil
	}

	bar, ok := m.state.LatestBar(m.symbol)
	if !ok {
		return false, nil
	}

	ratio, err := pwapRatio(bar.High, setup.EntryPrice, bar.VWAP)
	if err != nil {
		return false, err
	}
	if ratio > m.cfg.TakeProfitRatio {
		if _, err := m.gateway.ClosePosition(ctx, m.symbol, m.qty, price); err != nil {
			return false, errors.Wrap(err, "take-profit close position")
		}
		obs.IncOrder(string(order.SideSell))
		logs.Infof("[%s] TAKE-PROFIT hit, exiting @ %g", m.symbol, price)
		m.appendRecord(journal.EventExit, m.qty, price)
		m.releaseSlot()
		m.inPosition = false
		return true, nil
	}

	// Hold: re-sample until a bar breaks out of the tolerance band, the
	// stop is crossed, or EOD arrives.
	return false, m.hold(ctx, setup, bar)
}

// hold blocks while consecutive bars stay inside the tolerance band around
// the previous high and the price stays above the stop.
func (m *Monitor) hold(ctx context.Context, setup model.Setup, prev market.BarView) error {
	for {
		if err := sleep(ctx, m.cfg.PollInterval); err != nil {
			return err
		}
		if !m.cfg.Now().Before(m.cfg.EODCutoff) {
			return nil
		}
		if price, ok := m.state.LatestPrice(m.symbol); ok && price < setup.StopLoss {
			return nil
		}
		bar, ok := m.state.LatestBar(m.symbol)
		if !ok {
			continue
		}
		if !bar.Timestamp.Equal(prev.Timestamp) && !m.withinBand(bar.High, prev.High) {
			return nil
		}
	}
}

func (m *Monitor) withinBand(high, prevHigh float64) bool {
	return high > prevHigh*m.cfg.HighBandLower && high < prevHigh*m.cfg.HighBandUpper
}

// pwapRatio relates how far the bar high ran past the entry to how far it
// ran past the VWAP. A VWAP at the bar high makes the ratio undefined and
// returns ErrFlatVWAP instead of dividing by zero.
func pwapRatio(high, entry, vwap float64) (float64, error) {
	if vwap <= 0 {
		return 0, errors.Wrap(exception.ErrBarUnavailable, "vwap not positive").With("vwap", vwap)
	}
	if entry <= 0 {
		return 0, errors.Wrap(exception.ErrInvalidArgument, "entry not positive").With("entry", entry)
	}
	denom := high/vwap - 1
	if denom == 0 {
		return 0, errors.Wrap(exception.ErrFlatVWAP, "pwap ratio").With("high", high)
	}
	return (high/entry - 1) / denom, nil
}

func (m *Monitor) appendRecord(ev journal.Event, qty, price float64) {
	record := journal.Record{
		Timestamp: m.cfg.Now().UTC(),
		Symbol:    m.symbol,
		Event:     ev,
		Quantity:  qty,
		Price:     price,
	}
	if err := m.log.Append(record); err != nil {
		logs.Warnf("[%s] trade log append, err: %+v", m.symbol, err)
	}
	obs.IncTradeEvent(string(ev))
}

func (m *Monitor) releaseSlot() {
	m.slots.Release()
	obs.SetOpenPositions(m.slots.InUse())
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
