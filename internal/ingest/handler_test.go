package ingest

import (
	"testing"
	"time"

	"main/internal/market"
	"main/internal/model"
	"main/internal/ops"
)

func newTestHandler(t *testing.T, setups ...model.Setup) (*Handler, *market.State) {
	t.Helper()
	state := market.NewState()
	h := NewHandler(HandlerConfig{}, ops.NewStaticSource(setups...), state, nil)
	return h, state
}

func trade(symbol string, price, size float64) model.Trade {
	return model.Trade{Symbol: symbol, Price: price, Size: size, Timestamp: time.Now().UTC()}
}

func TestOddLotNeverUpdatesState(t *testing.T) {
	h, state := newTestHandler(t, model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100})

	h.OnTrade(trade("BTC/USD", 10.50, 99))
	h.OnTrade(trade("BTC/USD", 8.50, 1))

	if _, ok := state.LatestPrice("BTC/USD"); ok {
		t.Fatal("odd lots must not update the latest price")
	}
}

func TestUnknownSymbolDroppedSilently(t *testing.T) {
	h, state := newTestHandler(t, model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100})

	h.OnTrade(trade("DOGE/USD", 10.50, 500))
	h.OnBar(model.Bar{Symbol: "DOGE/USD", High: 11, VWAP: 10.5})

	if _, ok := state.LatestPrice("DOGE/USD"); ok {
		t.Fatal("unknown symbol must not reach state")
	}
	if _, ok := state.LatestBar("DOGE/USD"); ok {
		t.Fatal("unknown symbol bar must not reach state")
	}
}

func TestBetweenStopAndEntryIgnored(t *testing.T) {
	h, state := newTestHandler(t, model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100})

	h.OnTrade(trade("BTC/USD", 9.50, 500))

	if _, ok := state.LatestPrice("BTC/USD"); ok {
		t.Fatal("mid-band trade must not update the latest price")
	}
}

func TestAroundExitAlwaysUpdates(t *testing.T) {
	h, state := newTestHandler(t, model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100})

	h.OnTrade(trade("BTC/USD", 8.95, 500))
	price, ok := state.LatestPrice("BTC/USD")
	if !ok || price != 8.95 {
		t.Fatalf("around-exit trade must update latest price: %v %v", price, ok)
	}
}

func TestPullbackRunEndsAtLimit(t *testing.T) {
	setup := model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100}
	state := market.NewState()
	h := NewHandler(HandlerConfig{PullbackLimit: 50}, ops.NewStaticSource(setup), state, nil)

	// Gap-up starts the tracked run and is a confirmed tick.
	h.OnTrade(trade("BTC/USD", 10.50, 500))
	price, ok := state.LatestPrice("BTC/USD")
	if !ok || price != 10.50 {
		t.Fatalf("gap-up must confirm: %v %v", price, ok)
	}

	// 50 descending above-stop ticks below the reference are pull-backs and
	// never touch the latest price.
	for i := 0; i < 50; i++ {
		h.OnTrade(trade("BTC/USD", 10.40-float64(i)*0.001, 500))
	}
	price, _ = state.LatestPrice("BTC/USD")
	if price != 10.50 {
		t.Fatalf("pull-back ticks must not move the latest price: %v", price)
	}

	// Tracking ended: the next above-entry tick confirms even though it is
	// below the old reference.
	h.OnTrade(trade("BTC/USD", 10.30, 500))
	price, _ = state.LatestPrice("BTC/USD")
	if price != 10.30 {
		t.Fatalf("post-run tick must confirm: %v", price)
	}
}

func TestConfirmedTickMovesReference(t *testing.T) {
	setup := model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100}
	state := market.NewState()
	h := NewHandler(HandlerConfig{PullbackLimit: 5}, ops.NewStaticSource(setup), state, nil)

	h.OnTrade(trade("BTC/USD", 10.50, 500)) // starts run, confirmed
	h.OnTrade(trade("BTC/USD", 10.60, 500)) // above reference: confirmed, new reference
	h.OnTrade(trade("BTC/USD", 10.55, 500)) // below new reference: pull-back

	price, _ := state.LatestPrice("BTC/USD")
	if price != 10.60 {
		t.Fatalf("latest price must reflect confirmed ticks only: %v", price)
	}
}

func TestOnBarMaintainsWindowAndHistory(t *testing.T) {
	h, state := newTestHandler(t, model.Setup{Symbol: "ETH/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100})

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		h.OnBar(model.Bar{
			Symbol:    "ETH/USD",
			High:      float64(10 + i),
			VWAP:      float64(9 + i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	if got := len(state.Bars("ETH/USD")); got != market.BarWindowSize {
		t.Fatalf("bar window size: got %d want %d", got, market.BarWindowSize)
	}
	if got := len(state.VWAPHistory("ETH/USD")); got != 7 {
		t.Fatalf("vwap history must be unbounded: got %d", got)
	}
	view, ok := state.LatestBar("ETH/USD")
	if !ok || view.High != 16 || view.VWAP != 15 {
		t.Fatalf("latest bar mismatch: %+v %v", view, ok)
	}
}
