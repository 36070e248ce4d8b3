// Package alpaca implements the live feed against the Alpaca crypto
// websocket stream (v1beta3).
package alpaca

import (
	"context"
	"sync"
	"time"

	"main/internal/feed"
	"main/internal/model"
	"main/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"
)

const _alpacaCryptoWsURL = "wss://stream.data.alpaca.markets/v1beta3/crypto/us"

// Config carries stream credentials and an optional endpoint override.
type Config struct {
	Key    string
	Secret string
	URL    string
}

// Stream is a Feed over one Alpaca crypto websocket connection. Each Run
// dials a fresh connection, so a supervisor can call it again after a
// failure.
type Stream struct {
	cfg Config

	mu            sync.RWMutex
	wss           *ws.WebSocket
	running       bool
	tradeHandlers map[string]feed.TradeHandler
	barHandlers   map[string]feed.BarHandler
}

var _ feed.Feed = (*Stream)(nil)

func NewStream(cfg Config) *Stream {
	if cfg.URL == "" {
		cfg.URL = _alpacaCryptoWsURL
	}
	return &Stream{
		cfg:           cfg,
		tradeHandlers: make(map[string]feed.TradeHandler),
		barHandlers:   make(map[string]feed.BarHandler),
	}
}

type alpacaMessage struct {
	Type    string    `json:"T"`
	Symbol  string    `json:"S"`
	Message string    `json:"msg"`
	Code    int       `json:"code"`
	Price   float64   `json:"p"`
	Size    float64   `json:"s"`
	Taker   string    `json:"tks"`
	Open    float64   `json:"o"`
	High    float64   `json:"h"`
	Low     float64   `json:"l"`
	Close   float64   `json:"c"`
	Volume  float64   `json:"v"`
	VWAP    float64   `json:"vw"`
	Time    time.Time `json:"t"`
}

type controlRequest struct {
	Action string   `json:"action"`
	Key    string   `json:"key,omitempty"`
	Secret string   `json:"secret,omitempty"`
	Trades []string `json:"trades,omitempty"`
	Bars   []string `json:"bars,omitempty"`
}

// SubscribeTrades registers a trade handler and, when the stream is live,
// sends the subscribe control message right away.
func (s *Stream) SubscribeTrades(ctx context.Context, symbol string, handler feed.TradeHandler) error {
	s.mu.Lock()
	s.tradeHandlers[symbol] = handler
	wss, running := s.wss, s.running
	s.mu.Unlock()

	if !running {
		return nil
	}
	return s.sendSubscribe(ctx, wss, controlRequest{Action: "subscribe", Trades: []string{symbol}})
}

// SubscribeBars registers a bar handler, mirroring SubscribeTrades.
func (s *Stream) SubscribeBars(ctx context.Context, symbol string, handler feed.BarHandler) error {
	s.mu.Lock()
	s.barHandlers[symbol] = handler
	wss, running := s.wss, s.running
	s.mu.Unlock()

	if !running {
		return nil
	}
	return s.sendSubscribe(ctx, wss, controlRequest{Action: "subscribe", Bars: []string{symbol}})
}

// Unsubscribe drops the symbol's handlers and tells the venue to stop
// sending it. Unsubscribing a never-subscribed symbol is a no-op.
func (s *Stream) Unsubscribe(ctx context.Context, symbol string) error {
	s.mu.Lock()
	delete(s.tradeHandlers, symbol)
	delete(s.barHandlers, symbol)
	wss, running := s.wss, s.running
	s.mu.Unlock()

	if !running {
		return nil
	}
	if err := wss.WriteJSON(controlRequest{
		Action: "unsubscribe",
		Trades: []string{symbol},
		Bars:   []string{symbol},
	}); err != nil {
		return errors.Wrap(err, "write unsubscribe payload").With("symbol", symbol)
	}
	return nil
}

// Run dials, authenticates, subscribes every registered symbol and pumps
// events to the handlers until disconnect or cancellation.
func (s *Stream) Run(ctx context.Context) error {
	wss := ws.New(ctx, s.cfg.URL)

	s.mu.Lock()
	s.wss = wss
	s.running = true
	symbols := s.registeredSymbols()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.wss = nil
		s.mu.Unlock()
		wss.Close()
	}()

	if err := wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	if err := s.authenticate(ctx, wss); err != nil {
		return err
	}
	if len(symbols) > 0 {
		if err := s.sendSubscribe(ctx, wss, controlRequest{
			Action: "subscribe",
			Trades: symbols,
			Bars:   symbols,
		}); err != nil {
			return err
		}
	}

	ch, cancel := wss.Subscribe()
	defer cancel()

	for {
		select {
		case <-sys.Shutdown():
			return context.Canceled
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return exception.ErrFeedClosed
			}
			s.dispatch(m)
		}
	}
}

// Stop closes the current connection, ending Run.
func (s *Stream) Stop() {
	s.mu.Lock()
	wss := s.wss
	s.mu.Unlock()

	if wss != nil {
		wss.Close()
	}
}

func (s *Stream) registeredSymbols() []string {
	seen := make(map[string]struct{}, len(s.tradeHandlers))
	for symbol := range s.tradeHandlers {
		seen[symbol] = struct{}{}
	}
	for symbol := range s.barHandlers {
		seen[symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	return symbols
}

func (s *Stream) authenticate(ctx context.Context, wss *ws.WebSocket) error {
	if err := wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(controlRequest{
				Action: "auth",
				Key:    s.cfg.Key,
				Secret: s.cfg.Secret,
			}); err != nil {
				return errors.Wrap(err, "write auth payload")
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			msgs, ok := ws.ReadMessage[[]alpacaMessage](m)
			if !ok {
				return false, nil
			}
			for _, msg := range msgs {
				switch {
				case msg.Type == "success" && msg.Message == "authenticated":
					return true, nil
				case msg.Type == "error":
					return false, errors.Wrap(exception.ErrFeedAuthRejected, msg.Message).With("code", msg.Code)
				}
			}
			return false, nil
		},
	}, true); err != nil {
		return errors.Wrap(err, "authenticate stream")
	}
	return nil
}

func (s *Stream) sendSubscribe(ctx context.Context, wss *ws.WebSocket, req controlRequest) error {
	if wss == nil {
		return exception.ErrFeedNotRunning
	}
	if err := wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			if err := client.WriteJSON(req); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", req)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			msgs, ok := ws.ReadMessage[[]alpacaMessage](m)
			if !ok {
				return false, nil
			}
			for _, msg := range msgs {
				switch msg.Type {
				case "subscription":
					return true, nil
				case "error":
					return false, errors.Wrap(exception.ErrSubscribeRejected, msg.Message).With("code", msg.Code)
				}
			}
			return false, nil
		},
	}, true); err != nil {
		return errors.Wrap(err, "send and wait subscribe")
	}
	return nil
}

func (s *Stream) dispatch(m ws.Message) {
	msgs, ok := ws.ReadMessage[[]alpacaMessage](m)
	if !ok {
		return
	}
	for _, msg := range msgs {
		switch msg.Type {
		case "t":
			s.mu.RLock()
			handler := s.tradeHandlers[msg.Symbol]
			s.mu.RUnlock()
			if handler == nil {
				continue
			}
			trade := model.Trade{
				Symbol:    msg.Symbol,
				Price:     msg.Price,
				Size:      msg.Size,
				Timestamp: msg.Time,
			}
			if msg.Taker != "" {
				trade.Conditions = []string{msg.Taker}
			}
			handler(trade)
		case "b":
			s.mu.RLock()
			handler := s.barHandlers[msg.Symbol]
			s.mu.RUnlock()
			if handler == nil {
				continue
			}
			handler(model.Bar{
				Symbol:    msg.Symbol,
				Open:      msg.Open,
				High:      msg.High,
				Low:       msg.Low,
				Close:     msg.Close,
				Volume:    msg.Volume,
				VWAP:      msg.VWAP,
				Timestamp: msg.Time,
			})
		case "error":
			logs.Errorf("stream error message, code: %d, msg: %s", msg.Code, msg.Message)
		}
	}
}
