package ingest

import (
	"context"
	"time"

	"main/internal/feed"
	"main/internal/obs"
	"main/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	// DefaultMaxRetries gives up on the transport after this many
	// consecutive failures.
	DefaultMaxRetries = 20
	// DefaultRetryBackoff is the fixed wait between reconnect attempts.
	DefaultRetryBackoff = 15 * time.Second
)

// SupervisorConfig tunes the retry policy.
type SupervisorConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

func (c SupervisorConfig) withDefaults() SupervisorConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultRetryBackoff
	}
	return c
}

// Supervisor owns the feed subscription lifecycle: it subscribes the
// configured symbols, runs the transport, and reconnects on failure with a
// fixed backoff until the retry budget is spent.
type Supervisor struct {
	cfg     SupervisorConfig
	feed    feed.Feed
	handler *Handler
}

func NewSupervisor(cfg SupervisorConfig, f feed.Feed, handler *Handler) *Supervisor {
	return &Supervisor{cfg: cfg.withDefaults(), feed: f, handler: handler}
}

// Run subscribes every symbol and drives the transport until it exits
// cleanly, the context is cancelled, or the retries are exhausted.
// Exhaustion is fatal: the caller must shut the whole trader down.
func (s *Supervisor) Run(ctx context.Context, symbols []string) error {
	retries := 0
	for {
		err := s.runOnce(ctx, symbols)
		switch {
		case err == nil:
			logs.Info("stream stopped gracefully")
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, context.Canceled):
			return err
		}

		retries++
		obs.IncFeedRetry()
		logs.Errorf("stream crash %d/%d, err: %+v", retries, s.cfg.MaxRetries, err)

		if retries >= s.cfg.MaxRetries {
			return errors.Wrap(exception.ErrRetriesExhausted, "stream supervisor").With("retries", retries)
		}

		logs.Warnf("stream reconnect attempt in %s", s.cfg.Backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Backoff):
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context, symbols []string) error {
	for _, symbol := range symbols {
		if err := s.feed.SubscribeTrades(ctx, symbol, s.handler.OnTrade); err != nil {
			return errors.Wrap(err, "subscribe trades").With("symbol", symbol)
		}
		if err := s.feed.SubscribeBars(ctx, symbol, s.handler.OnBar); err != nil {
			return errors.Wrap(err, "subscribe bars").With("symbol", symbol)
		}
	}
	return s.feed.Run(ctx)
}

// Unsubscribe drops one symbol from the feed. Safe to call repeatedly and
// for symbols that were never subscribed; failures are logged, never
// raised.
func (s *Supervisor) Unsubscribe(ctx context.Context, symbol string) {
	if err := s.feed.Unsubscribe(ctx, symbol); err != nil {
		logs.Warnf("unsubscribe %s, err: %+v", symbol, err)
		return
	}
	logs.Infof("[%s] price/bar stream unsubscribed", symbol)
}
