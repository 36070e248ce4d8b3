// Package alpaca implements the order gateway against the Alpaca trading
// REST API.
package alpaca

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"main/internal/order"
	"main/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/yanun0323/errors"
)

const (
	_alpacaBaseURL      = "https://api.alpaca.markets"
	_alpacaPaperBaseURL = "https://paper-api.alpaca.markets"

	_requestTimeout = 15 * time.Second
)

// Client submits limit orders and queries positions.
type Client struct {
	client  *http.Client
	baseURL string
	key     string
	secret  string
	pricing order.Pricing
}

var _ order.Gateway = (*Client)(nil)

// NewClient builds a gateway. Paper trading targets the paper endpoint.
func NewClient(client *http.Client, key, secret string, paper bool) *Client {
	if client == nil {
		client = &http.Client{}
	}
	baseURL := _alpacaBaseURL
	if paper {
		baseURL = _alpacaPaperBaseURL
	}
	return &Client{
		client:  client,
		baseURL: baseURL,
		key:     key,
		secret:  secret,
		pricing: order.DefaultPricing(),
	}
}

type orderRequest struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	LimitPrice    string `json:"limit_price"`
	ClientOrderID string `json:"client_order_id"`
}

type orderResponse struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	SubmittedAt   string `json:"submitted_at"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SubmitBuy places a marketable limit buy just above the reference price.
func (c *Client) SubmitBuy(ctx context.Context, symbol string, qty, refPrice float64) (order.Result, error) {
	return c.submit(ctx, symbol, order.SideBuy, qty, c.pricing.LimitBuy(refPrice))
}

// SubmitSell places a marketable limit sell just below the reference price.
func (c *Client) SubmitSell(ctx context.Context, symbol string, qty, refPrice float64) (order.Result, error) {
	return c.submit(ctx, symbol, order.SideSell, qty, c.pricing.LimitSell(refPrice))
}

// ClosePosition unwinds an open position with a marketable limit sell.
func (c *Client) ClosePosition(ctx context.Context, symbol string, qty, refPrice float64) (order.Result, error) {
	return c.SubmitSell(ctx, symbol, qty, refPrice)
}

func (c *Client) submit(ctx context.Context, symbol string, side order.Side, qty, limitPrice float64) (order.Result, error) {
	result := order.Result{
		ClientOrderID: uuid.NewString(),
		Symbol:        symbol,
		Side:          side,
		Qty:           qty,
		LimitPrice:    limitPrice,
	}

	payload, err := sonic.ConfigFastest.Marshal(orderRequest{
		Symbol:        symbol,
		Qty:           strconv.FormatFloat(qty, 'f', -1, 64),
		Side:          string(side),
		Type:          "limit",
		TimeInForce:   "gtc",
		LimitPrice:    strconv.FormatFloat(limitPrice, 'f', -1, 64),
		ClientOrderID: result.ClientOrderID,
	})
	if err != nil {
		return result, err
	}

	ctx, cancel := context.WithTimeout(ctx, _requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/orders", bytes.NewReader(payload))
	if err != nil {
		return result, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return result, errors.Wrap(err, "submit order").With("symbol", symbol)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&apiErr)
		return result, errors.Wrap(exception.ErrOrderRejected, apiErr.Message).
			With("symbol", symbol).
			With("status", resp.StatusCode)
	}

	var data orderResponse
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&data); err != nil {
		return result, errors.Wrap(err, "decode order response").With("symbol", symbol)
	}

	result.OrderID = data.ID
	result.Status = data.Status
	if ts, err := time.Parse(time.RFC3339, data.SubmittedAt); err == nil {
		result.SubmittedAt = ts
	}
	return result, nil
}

type positionResponse struct {
	Symbol string `json:"symbol"`
	Qty    string `json:"qty"`
}

// OpenQuantity returns the currently held quantity for a symbol, zero when
// no position is open.
func (c *Client) OpenQuantity(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, _requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/positions/"+symbol, nil)
	if err != nil {
		return 0, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "query position").With("symbol", symbol)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, errors.Wrap(exception.ErrInternal, "query position status").
			With("symbol", symbol).
			With("status", resp.StatusCode)
	}

	var data positionResponse
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, errors.Wrap(err, "decode position response").With("symbol", symbol)
	}
	qty, err := strconv.ParseFloat(data.Qty, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse position qty").With("symbol", symbol)
	}
	return qty, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.key)
	req.Header.Set("APCA-API-SECRET-KEY", c.secret)
}
