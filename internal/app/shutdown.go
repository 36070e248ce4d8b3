package app

import (
	"context"
	"sync"

	"main/internal/feed"
	"main/internal/ingest"
	"main/internal/ops"

	"github.com/yanun0323/logs"
)

// Shutdown tears the feed side down exactly once: every configured symbol
// is unsubscribed, then the connection is closed. Safe to call from signal
// handling and from the normal exit path at the same time.
type Shutdown struct {
	once   sync.Once
	setups ops.Source
	stream *ingest.Supervisor
	feed   feed.Feed
}

func NewShutdown(setups ops.Source, stream *ingest.Supervisor, f feed.Feed) *Shutdown {
	return &Shutdown{setups: setups, stream: stream, feed: f}
}

// Run performs the teardown. Subsequent calls are no-ops.
func (s *Shutdown) Run(ctx context.Context) {
	s.once.Do(func() {
		logs.Info("shutting down feed")
		for _, setup := range s.setups.Setups() {
			s.stream.Unsubscribe(ctx, setup.Symbol)
		}
		s.feed.Stop()
	})
}
