/*
Market holds the process-wide view of the live feed.

Written only by the ingest handler, read by every trade monitor. Absence of
a symbol means no qualifying event has arrived yet; callers wait instead of
treating it as an error.
*/
package market

import (
	"sync"
	"time"
)

// BarWindowSize bounds the rolling bar window kept per symbol.
const BarWindowSize = 5

// BarEntry is one stored bar.
type BarEntry struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	VWAP      float64
	Timestamp time.Time
}

// BarView is the monitor-facing slice of the newest bar.
type BarView struct {
	VWAP      float64
	High      float64
	Timestamp time.Time
}

type symbolState struct {
	latestPrice float64
	hasPrice    bool

	bars   []BarEntry
	vwaps  []float64
	hasBar bool
}

// State stores the latest price, bar window and VWAP history per symbol.
type State struct {
	mu      sync.RWMutex
	symbols map[string]*symbolState
}

func NewState() *State {
	return &State{symbols: make(map[string]*symbolState)}
}

func (s *State) symbol(symbol string) *symbolState {
	st, ok := s.symbols[symbol]
	if !ok {
		st = &symbolState{}
		s.symbols[symbol] = st
	}
	return st
}

// SetLatestPrice records a confirmed trade price.
func (s *State) SetLatestPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.symbol(symbol)
	st.latestPrice = price
	st.hasPrice = true
}

// LatestPrice returns the last confirmed trade price, if any arrived yet.
func (s *State) LatestPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.symbols[symbol]
	if !ok || !st.hasPrice {
		return 0, false
	}
	return st.latestPrice, true
}

// AppendBar pushes one bar into the rolling window, evicting the oldest
// entry past capacity, and appends its VWAP to the unbounded history.
func (s *State) AppendBar(symbol string, entry BarEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.symbol(symbol)
	st.bars = append(st.bars, entry)
	if len(st.bars) > BarWindowSize {
		st.bars = st.bars[1:]
	}
	st.vwaps = append(st.vwaps, entry.VWAP)
	st.hasBar = true
}

// LatestBar returns the newest bar's VWAP, high and timestamp.
func (s *State) LatestBar(symbol string) (BarView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.symbols[symbol]
	if !ok || !st.hasBar || len(st.bars) == 0 {
		return BarView{}, false
	}
	last := st.bars[len(st.bars)-1]
	return BarView{VWAP: last.VWAP, High: last.High, Timestamp: last.Timestamp}, true
}

// Bars returns a copy of the current bar window, oldest first.
func (s *State) Bars(symbol string) []BarEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.symbols[symbol]
	if !ok || len(st.bars) == 0 {
		return nil
	}
	out := make([]BarEntry, len(st.bars))
	copy(out, st.bars)
	return out
}

// VWAPHistory returns a copy of every VWAP seen for the symbol.
func (s *State) VWAPHistory(symbol string) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.symbols[symbol]
	if !ok || len(st.vwaps) == 0 {
		return nil
	}
	out := make([]float64, len(st.vwaps))
	copy(out, st.vwaps)
	return out
}
