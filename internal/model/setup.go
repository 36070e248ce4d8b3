package model

import (
	"math"
	"strings"

	"main/pkg/exception"

	"github.com/yanun0323/errors"
)

// Setup is one tradable play: enter above EntryPrice, bail below StopLoss,
// size the position by DollarValue.
type Setup struct {
	Symbol      string  `json:"symbol"`
	EntryPrice  float64 `json:"entry_price"`
	StopLoss    float64 `json:"stop_loss"`
	DollarValue float64 `json:"dollar_value"`
}

// Validate rejects setups that could never trade sanely.
func (s Setup) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return errors.Wrap(exception.ErrInvalidSetup, "empty symbol")
	}
	if s.EntryPrice <= 0 {
		return errors.Wrap(exception.ErrInvalidSetup, "entry price must be > 0").With("symbol", s.Symbol)
	}
	if s.StopLoss >= s.EntryPrice {
		return errors.Wrap(exception.ErrInvalidSetup, "stop loss must be below entry price").With("symbol", s.Symbol)
	}
	if s.DollarValue <= 0 {
		return errors.Wrap(exception.ErrInvalidSetup, "dollar value must be > 0").With("symbol", s.Symbol)
	}
	return nil
}

// Quantity sizes the position from the dollar budget at the entry price.
func (s Setup) Quantity() float64 {
	if s.EntryPrice <= 0 {
		return 0
	}
	return math.Round(s.DollarValue / s.EntryPrice)
}
