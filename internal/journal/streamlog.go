package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"main/internal/model"

	"github.com/yanun0323/errors"
)

// StreamLog writes one append-only tagged file per symbol, recording how
// each inbound tick was classified. Lives on its own so a slow disk never
// touches the shared market state path.
type StreamLog struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

func NewStreamLog(dir string) (*StreamLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create price stream log dir").With("dir", dir)
	}
	return &StreamLog{dir: dir, files: make(map[string]*os.File)}, nil
}

// Tick appends one tagged tick line, e.g.
//
//	[CONFIRMED TICK] 2025-06-02T14:00:00Z,BTC/USD,PRICE 65001.5,VOL 120, COND []
func (l *StreamLog) Tick(tag string, t model.Trade) error {
	line := fmt.Sprintf("[%s] %s,%s,PRICE %g,VOL %g, COND %v\n",
		tag, t.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"), t.Symbol, t.Price, t.Size, t.Conditions)
	return l.append(t.Symbol, line)
}

func (l *StreamLog) append(symbol, line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, ok := l.files[symbol]
	if !ok {
		name := "price_stream_log_" + sanitizeSymbol(symbol) + ".txt"
		f, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open price stream log").With("symbol", symbol)
		}
		l.files[symbol] = f
		file = f
	}
	_, err := file.WriteString(line)
	return err
}

func (l *StreamLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = make(map[string]*os.File)
	return firstErr
}

// sanitizeSymbol keeps crypto pair separators out of file names.
func sanitizeSymbol(symbol string) string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(symbol)
}
