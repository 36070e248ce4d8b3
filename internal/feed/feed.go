// Package feed defines the live market-data transport the trader consumes.
package feed

import (
	"context"

	"main/internal/model"
)

// TradeHandler receives one trade tick.
type TradeHandler func(model.Trade)

// BarHandler receives one aggregated bar.
type BarHandler func(model.Bar)

// Feed delivers live trade and bar events per symbol.
//
// SubscribeTrades/SubscribeBars may be called before or during Run; Run
// blocks until the transport disconnects, fails, or the context is
// cancelled. Unsubscribe is idempotent and safe for never-subscribed
// symbols. Stop tears the transport down.
type Feed interface {
	SubscribeTrades(ctx context.Context, symbol string, handler TradeHandler) error
	SubscribeBars(ctx context.Context, symbol string, handler BarHandler) error
	Unsubscribe(ctx context.Context, symbol string) error
	Run(ctx context.Context) error
	Stop()
}
