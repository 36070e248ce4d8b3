package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/feed"
	"main/internal/ingest"
	"main/internal/journal"
	"main/internal/market"
	"main/internal/model"
	"main/internal/monitor"
	"main/internal/ops"
	"main/internal/order"
	"main/internal/slot"
)

type fakeFeed struct {
	mu     sync.Mutex
	stops  int
	unsubs map[string]int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{unsubs: make(map[string]int)}
}

func (f *fakeFeed) SubscribeTrades(context.Context, string, feed.TradeHandler) error { return nil }

func (f *fakeFeed) SubscribeBars(context.Context, string, feed.BarHandler) error { return nil }

func (f *fakeFeed) Unsubscribe(_ context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubs[symbol]++
	return nil
}

func (f *fakeFeed) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeFeed) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeFeed) unsubCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubs[symbol]
}

type idleGateway struct{}

func (idleGateway) SubmitBuy(_ context.Context, symbol string, qty, _ float64) (order.Result, error) {
	return order.Result{Symbol: symbol, Side: order.SideBuy, Qty: qty}, nil
}

func (idleGateway) SubmitSell(_ context.Context, symbol string, qty, _ float64) (order.Result, error) {
	return order.Result{Symbol: symbol, Side: order.SideSell, Qty: qty}, nil
}

func (g idleGateway) ClosePosition(ctx context.Context, symbol string, qty, ref float64) (order.Result, error) {
	return g.SubmitSell(ctx, symbol, qty, ref)
}

func (idleGateway) OpenQuantity(context.Context, string) (float64, error) { return 0, nil }

func TestTaskGroupRecoversPanics(t *testing.T) {
	var group TaskGroup
	ran := make(chan struct{})

	group.Go(context.Background(), "boom", func(context.Context) error {
		panic("kaput")
	})
	group.Go(context.Background(), "fine", func(context.Context) error {
		close(ran)
		return nil
	})

	done := make(chan struct{})
	go func() {
		group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after a panicking task")
	}
	select {
	case <-ran:
	default:
		t.Fatal("sibling task never ran")
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	f := newFakeFeed()
	setups := ops.NewStaticSource(
		model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100},
		model.Setup{Symbol: "ETH/USD", EntryPrice: 5, StopLoss: 4, DollarValue: 50},
	)
	stream := ingest.NewSupervisor(ingest.SupervisorConfig{}, f, nil)
	shutdown := NewShutdown(setups, stream, f)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdown.Run(context.Background())
		}()
	}
	wg.Wait()
	shutdown.Run(context.Background())

	assert.Equal(t, 1, f.stopCount())
	assert.Equal(t, 1, f.unsubCount("BTC/USD"))
	assert.Equal(t, 1, f.unsubCount("ETH/USD"))
}

func TestRunFinishesWhenAllMonitorsAreTerminal(t *testing.T) {
	f := newFakeFeed()
	setups := ops.NewStaticSource(
		model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100},
	)
	state := market.NewState()
	state.SetLatestPrice("BTC/USD", 9.5)

	log, err := journal.OpenTradeLog(filepath.Join(t.TempDir(), "trade_log.txt"), nil)
	require.NoError(t, err)
	defer log.Close()

	handler := ingest.NewHandler(ingest.HandlerConfig{}, setups, state, nil)
	stream := ingest.NewSupervisor(ingest.SupervisorConfig{}, f, handler)
	shutdown := NewShutdown(setups, stream, f)

	// EOD already behind us: the monitor unsubscribes and terminates on
	// its first iteration.
	cfg := monitor.Config{
		PollInterval: time.Millisecond,
		EODCutoff:    time.Now().Add(-time.Minute),
	}
	a := New(setups, state, slot.NewManager(4), idleGateway{}, stream, shutdown, log, cfg)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not finish after all monitors terminated")
	}
	assert.Equal(t, 1, f.stopCount())
}

func TestRunRefusesEmptyConfig(t *testing.T) {
	f := newFakeFeed()
	setups := ops.NewStaticSource()
	stream := ingest.NewSupervisor(ingest.SupervisorConfig{}, f, nil)

	log, err := journal.OpenTradeLog(filepath.Join(t.TempDir(), "trade_log.txt"), nil)
	require.NoError(t, err)
	defer log.Close()

	a := New(setups, market.NewState(), slot.NewManager(4), idleGateway{}, stream, NewShutdown(setups, stream, f), log, monitor.Config{})
	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, f.stopCount())
}
