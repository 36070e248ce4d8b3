// Package order defines the brokerage gateway the monitors trade through
// and the limit-pricing policy applied to every order.
package order

import (
	"context"
	"time"
)

// Side of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Result is the normalized view of a submitted order.
type Result struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          Side
	Qty           float64
	LimitPrice    float64
	Status        string
	SubmittedAt   time.Time
}

// Gateway submits orders and reports open positions. The reference price is
// the latest confirmed tick; the concrete pricing policy decides the limit
// offset and rounding from it.
type Gateway interface {
	SubmitBuy(ctx context.Context, symbol string, qty, refPrice float64) (Result, error)
	SubmitSell(ctx context.Context, symbol string, qty, refPrice float64) (Result, error)
	ClosePosition(ctx context.Context, symbol string, qty, refPrice float64) (Result, error)
	OpenQuantity(ctx context.Context, symbol string) (float64, error)
}
