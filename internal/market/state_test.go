package market

import (
	"sync"
	"testing"
	"time"
)

func TestLatestPriceAbsentUntilSet(t *testing.T) {
	s := NewState()
	if _, ok := s.LatestPrice("BTC/USD"); ok {
		t.Fatal("expected no price before first trade")
	}

	s.SetLatestPrice("BTC/USD", 65000.5)
	price, ok := s.LatestPrice("BTC/USD")
	if !ok {
		t.Fatal("expected price after set")
	}
	if price != 65000.5 {
		t.Fatalf("price mismatch: got %v want %v", price, 65000.5)
	}

	if _, ok := s.LatestPrice("ETH/USD"); ok {
		t.Fatal("other symbols must stay absent")
	}
}

func TestBarWindowEvictsOldest(t *testing.T) {
	s := NewState()
	base := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	for i := 0; i < BarWindowSize+3; i++ {
		s.AppendBar("ETH/USD", BarEntry{
			High:      float64(100 + i),
			VWAP:      float64(99 + i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	bars := s.Bars("ETH/USD")
	if len(bars) != BarWindowSize {
		t.Fatalf("window size: got %d want %d", len(bars), BarWindowSize)
	}
	if bars[0].High != 103 {
		t.Fatalf("oldest entry not evicted: got high %v", bars[0].High)
	}

	view, ok := s.LatestBar("ETH/USD")
	if !ok {
		t.Fatal("expected latest bar")
	}
	if view.High != 107 || view.VWAP != 106 {
		t.Fatalf("latest bar mismatch: %+v", view)
	}
	if !view.Timestamp.Equal(base.Add(7 * time.Minute)) {
		t.Fatalf("latest timestamp mismatch: %v", view.Timestamp)
	}
}

func TestVWAPHistoryUnbounded(t *testing.T) {
	s := NewState()
	for i := 0; i < 20; i++ {
		s.AppendBar("SOL/USD", BarEntry{VWAP: float64(i)})
	}
	history := s.VWAPHistory("SOL/USD")
	if len(history) != 20 {
		t.Fatalf("vwap history: got %d want 20", len(history))
	}
	if history[0] != 0 || history[19] != 19 {
		t.Fatalf("vwap history order mismatch: %v", history)
	}
}

func TestConcurrentReadersSingleWriter(t *testing.T) {
	s := NewState()
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.SetLatestPrice("BTC/USD", float64(i))
			s.AppendBar("BTC/USD", BarEntry{High: float64(i), VWAP: float64(i)})
		}
		close(done)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				s.LatestPrice("BTC/USD")
				s.LatestBar("BTC/USD")
				s.Bars("BTC/USD")
			}
		}()
	}
	wg.Wait()
}
