package journal

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yanun0323/errors"
)

// ClosedTrade is one ENTRY paired with its EXIT or EOD_EXIT.
type ClosedTrade struct {
	Symbol     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	ExitEvent  Event
	ReturnPct  float64
}

// Summary is the end-of-day profit/loss roll-up of a trade log.
type Summary struct {
	Trades    []ClosedTrade
	OpenEntry []Record // entries with no matching exit in the log
	Skips     int
	TotalPct  float64 // additive across trades, e.g. +5.0 -1.6 +3.4 => +6.8
}

// String renders the summary the way it is pushed out, one trade per line.
func (s Summary) String() string {
	var b strings.Builder
	for _, t := range s.Trades {
		fmt.Fprintf(&b, "%s %s %+0.1f%% (%g @ %g -> %g)\n",
			t.Symbol, t.ExitEvent, t.ReturnPct, t.Quantity, t.EntryPrice, t.ExitPrice)
	}
	if len(s.OpenEntry) > 0 {
		fmt.Fprintf(&b, "unmatched entries: %d\n", len(s.OpenEntry))
	}
	if s.Skips > 0 {
		fmt.Fprintf(&b, "skipped plays: %d\n", s.Skips)
	}
	fmt.Fprintf(&b, "total (additive): %+0.1f%%\n", s.TotalPct)
	return b.String()
}

// Summarize pairs entries with exits per symbol, first-in first-out.
func Summarize(records []Record) Summary {
	var summary Summary
	open := make(map[string][]Record)

	for _, r := range records {
		switch r.Event {
		case EventEntry:
			open[r.Symbol] = append(open[r.Symbol], r)
		case EventExit, EventEODExit:
			pending := open[r.Symbol]
			if len(pending) == 0 {
				continue
			}
			entry := pending[0]
			open[r.Symbol] = pending[1:]

			trade := ClosedTrade{
				Symbol:     r.Symbol,
				Quantity:   entry.Quantity,
				EntryPrice: entry.Price,
				ExitPrice:  r.Price,
				ExitEvent:  r.Event,
			}
			if entry.Price != 0 {
				trade.ReturnPct = (r.Price/entry.Price - 1) * 100
			}
			summary.Trades = append(summary.Trades, trade)
			summary.TotalPct += trade.ReturnPct
		case EventSkip:
			summary.Skips++
		}
	}

	for _, pending := range open {
		summary.OpenEntry = append(summary.OpenEntry, pending...)
	}
	return summary
}

// ReadLog parses a trade log file back into records, skipping separators
// and lines it cannot parse.
func ReadLog(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open trade log").With("path", path)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r, err := parseLine(line)
		if err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan trade log").With("path", path)
	}
	return records, nil
}

func parseLine(line string) (Record, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 5 {
		return Record{}, errors.Errorf("malformed trade log line: %q", line)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Record{}, errors.Wrap(err, "parse trade log timestamp")
	}
	qty, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Record{}, errors.Wrap(err, "parse trade log quantity")
	}
	price, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return Record{}, errors.Wrap(err, "parse trade log price")
	}

	return Record{
		Timestamp: ts,
		Symbol:    parts[1],
		Event:     Event(parts[2]),
		Quantity:  qty,
		Price:     price,
	}, nil
}
