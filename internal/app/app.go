/*
App wires the trading day together: one stream supervisor keeping the feed
alive, one monitor goroutine per configured symbol, and a shutdown pass
that detaches everything exactly once.

The process outlives its monitors, not the other way round: when every
monitor has reached a terminal state the feed is cancelled and Run
returns. A fatal stream error cancels the monitors instead.
*/
package app

import (
	"context"

	"main/internal/ingest"
	"main/internal/journal"
	"main/internal/market"
	"main/internal/monitor"
	"main/internal/ops"
	"main/internal/order"
	"main/internal/slot"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

type App struct {
	setups     ops.Source
	state      *market.State
	slots      *slot.Manager
	gateway    order.Gateway
	stream     *ingest.Supervisor
	log        *journal.TradeLog
	monitorCfg monitor.Config
	shutdown   *Shutdown
}

func New(setups ops.Source, state *market.State, slots *slot.Manager, gateway order.Gateway, stream *ingest.Supervisor, shutdown *Shutdown, log *journal.TradeLog, monitorCfg monitor.Config) *App {
	return &App{
		setups:     setups,
		state:      state,
		slots:      slots,
		gateway:    gateway,
		stream:     stream,
		log:        log,
		monitorCfg: monitorCfg,
		shutdown:   shutdown,
	}
}

// Run drives one trading session to completion. It returns once every
// monitor is terminal and the feed has stopped, or when ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	symbols := ops.Symbols(a.setups)
	if len(symbols) == 0 {
		return errors.New("no symbols configured")
	}
	logs.Infof("starting session for %d symbols", len(symbols))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var streamGroup TaskGroup
	streamGroup.Go(runCtx, "stream", func(ctx context.Context) error {
		err := a.stream.Run(ctx, symbols)
		if err != nil && !errors.Is(err, context.Canceled) {
			// The feed is gone for good; monitors cannot make progress.
			cancel()
		}
		return err
	})

	var monitors TaskGroup
	for _, symbol := range symbols {
		m := monitor.New(symbol, a.monitorCfg, a.setups, a.state, a.slots, a.gateway, a.stream, a.log)
		monitors.Go(runCtx, "monitor "+symbol, m.Run)
	}
	monitors.Wait()

	cancel()
	streamGroup.Wait()
	a.shutdown.Run(context.WithoutCancel(ctx))

	logs.Info("session finished")
	return ctx.Err()
}
