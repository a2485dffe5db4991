// Package binance is a minimal Binance spot REST client covering the kline
// endpoints the backtester needs.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cryptoquant/internal/model"
)

// DefaultBaseURL is the Binance spot REST endpoint.
const DefaultBaseURL = "https://api.binance.com"

// Client fetches candle data over the Binance REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client against baseURL (DefaultBaseURL when empty).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Klines fetches up to limit most recent candles for symbol/interval,
// ascending by open time. Implements model.CandleProvider.
func (c *Client) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("binance klines: status %d: %s", resp.StatusCode, body)
	}

	// Each kline is a mixed array:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("binance klines: decode: %w", err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := parseKline(symbol, timeframe, row)
		if err != nil {
			return nil, fmt.Errorf("binance klines: %w", err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// Ping checks REST connectivity.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("binance ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("binance ping: status %d", resp.StatusCode)
	}
	return nil
}

func parseKline(symbol, timeframe string, row []json.RawMessage) (model.Candle, error) {
	if len(row) < 7 {
		return model.Candle{}, fmt.Errorf("kline row has %d fields", len(row))
	}

	var c model.Candle
	c.Symbol = symbol
	c.Timeframe = timeframe

	if err := json.Unmarshal(row[0], &c.OpenTime); err != nil {
		return model.Candle{}, fmt.Errorf("open_time: %w", err)
	}
	if err := json.Unmarshal(row[6], &c.CloseTime); err != nil {
		return model.Candle{}, fmt.Errorf("close_time: %w", err)
	}

	// Prices and volume arrive as JSON strings.
	for _, f := range []struct {
		idx  int
		name string
		dst  *float64
	}{
		{1, "open", &c.Open},
		{2, "high", &c.High},
		{3, "low", &c.Low},
		{4, "close", &c.Close},
		{5, "volume", &c.Volume},
	} {
		var s string
		if err := json.Unmarshal(row[f.idx], &s); err != nil {
			return model.Candle{}, fmt.Errorf("%s: %w", f.name, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return c, nil
}
