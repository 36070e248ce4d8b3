/*
Journal persists what the trader did: the append-only trade log, the
per-symbol price-stream logs, the optional Postgres mirror, and the
end-of-day report built from the log afterwards.
*/
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Event classifies one trade-log line.
type Event string

const (
	EventEntry   Event = "ENTRY"
	EventExit    Event = "EXIT"
	EventEODExit Event = "EOD_EXIT"
	EventSkip    Event = "SKIP"
)

// Record is one trade-log line.
type Record struct {
	Timestamp time.Time
	Symbol    string
	Event     Event
	Quantity  float64
	Price     float64
}

func (r Record) line() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s\n",
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Symbol,
		r.Event,
		strconv.FormatFloat(r.Quantity, 'f', -1, 64),
		strconv.FormatFloat(r.Price, 'f', -1, 64),
	)
}

// TradeLog appends trade events to a single human-diffable file. Lines are
// never rewritten or deleted by the running process.
type TradeLog struct {
	mu    sync.Mutex
	file  *os.File
	store *Store
}

// OpenTradeLog opens (or creates) the trade log for appending. A non-nil
// store mirrors every record into Postgres.
func OpenTradeLog(path string, store *Store) (*TradeLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create trade log dir").With("path", path)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open trade log").With("path", path)
	}
	return &TradeLog{file: file, store: store}, nil
}

// Append writes one record. The Postgres mirror is best-effort; a store
// failure never fails the file append.
func (l *TradeLog) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.WriteString(r.line()); err != nil {
		return errors.Wrap(err, "append trade log").With("symbol", r.Symbol)
	}
	if l.store != nil {
		if err := l.store.Append(r); err != nil {
			logs.Warnf("trade journal store append, err: %+v", err)
		}
	}
	return nil
}

// Separator writes a blank line, marking the end-of-day pass.
func (l *TradeLog) Separator() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.file.WriteString("\n")
	return err
}

func (l *TradeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
