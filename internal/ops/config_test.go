package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"main/internal/model"
)

func writeSetupsFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "crypto_configs.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write setups file: %v", err)
	}
	return path
}

func TestNewFileSourceLoadsAndValidates(t *testing.T) {
	path := writeSetupsFile(t, t.TempDir(), `[
		{"symbol": "BTC/USD", "entry_price": 65000, "stop_loss": 63000, "dollar_value": 1000},
		{"symbol": "BAD/USD", "entry_price": 10, "stop_loss": 12, "dollar_value": 100}
	]`)

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("new file source: %v", err)
	}

	setups := src.Setups()
	if len(setups) != 1 {
		t.Fatalf("invalid setup not skipped: %+v", setups)
	}
	if setups[0].Symbol != "BTC/USD" {
		t.Fatalf("unexpected setup: %+v", setups[0])
	}
	if _, ok := src.Lookup("BAD/USD"); ok {
		t.Fatal("invalid setup must not be resolvable")
	}
}

func TestNewFileSourceRefusesEmptyFile(t *testing.T) {
	path := writeSetupsFile(t, t.TempDir(), `[]`)
	if _, err := NewFileSource(path); err == nil {
		t.Fatal("expected error for empty setups file")
	}
}

func TestFileSourceReloadKeepsCacheOnMidWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeSetupsFile(t, dir, `[{"symbol": "ETH/USD", "entry_price": 3000, "stop_loss": 2800, "dollar_value": 500}]`)

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("new file source: %v", err)
	}

	// Truncated JSON, as if caught mid-write.
	if err := os.WriteFile(path, []byte(`[{"symbol": "ETH/USD", "entry_`), 0o644); err != nil {
		t.Fatalf("rewrite setups file: %v", err)
	}
	bumpModTime(t, path)

	setups := src.Setups()
	if len(setups) != 1 || setups[0].Symbol != "ETH/USD" {
		t.Fatalf("cache not retained: %+v", setups)
	}

	if err := os.WriteFile(path, []byte(`[{"symbol": "SOL/USD", "entry_price": 150, "stop_loss": 140, "dollar_value": 300}]`), 0o644); err != nil {
		t.Fatalf("rewrite setups file: %v", err)
	}
	bumpModTime(t, path)

	setups = src.Setups()
	if len(setups) != 1 || setups[0].Symbol != "SOL/USD" {
		t.Fatalf("reload not applied: %+v", setups)
	}
}

func bumpModTime(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("bump mod time: %v", err)
	}
}

func TestStaticSourceRemove(t *testing.T) {
	src := NewStaticSource(
		model.Setup{Symbol: "BTC/USD", EntryPrice: 10, StopLoss: 9, DollarValue: 100},
		model.Setup{Symbol: "ETH/USD", EntryPrice: 20, StopLoss: 18, DollarValue: 100},
	)
	src.Remove("BTC/USD")

	if _, ok := src.Lookup("BTC/USD"); ok {
		t.Fatal("removed symbol still resolvable")
	}
	if got := Symbols(src); len(got) != 1 || got[0] != "ETH/USD" {
		t.Fatalf("symbols mismatch: %v", got)
	}
}
