// Package ws streams live klines from the Binance combined WebSocket and
// pushes closed bars into a ring buffer for the cache writers.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cryptoquant/internal/model"
	"cryptoquant/internal/ringbuf"
)

// DefaultStreamURL is the Binance combined stream endpoint.
const DefaultStreamURL = "wss://stream.binance.com:9443/stream"

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
	readTimeout   = 90 * time.Second
)

// IngestConfig holds configuration for the kline stream ingest.
type IngestConfig struct {
	StreamURL string   // DefaultStreamURL when empty
	Symbols   []string // e.g. "BTCUSDT"
	Timeframe string   // e.g. "1h"
}

// Ingest maintains a WebSocket subscription to kline streams and pushes each
// closed bar into the ring buffer. Forming (unclosed) bars are dropped.
type Ingest struct {
	cfg  IngestConfig
	ring *ringbuf.Ring

	// Optional metrics hooks
	OnReconnect func()
	OnKline     func(model.Candle)
}

// New creates an Ingest feeding the given ring buffer.
func New(cfg IngestConfig, ring *ringbuf.Ring) *Ingest {
	if cfg.StreamURL == "" {
		cfg.StreamURL = DefaultStreamURL
	}
	return &Ingest{cfg: cfg, ring: ring}
}

// streamURL builds the combined-stream URL for all configured symbols.
func (ing *Ingest) streamURL() string {
	streams := make([]string, len(ing.cfg.Symbols))
	for i, sym := range ing.cfg.Symbols {
		streams[i] = strings.ToLower(sym) + "@kline_" + ing.cfg.Timeframe
	}
	return ing.cfg.StreamURL + "?streams=" + strings.Join(streams, "/")
}

// Run connects and streams until ctx is cancelled, reconnecting with
// exponential backoff on any read or dial failure.
func (ing *Ingest) Run(ctx context.Context) error {
	backoff := reconnectBase

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := ing.streamOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[ws] stream ended: %v, reconnecting in %v", err, backoff)
		if ing.OnReconnect != nil {
			ing.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

// streamOnce dials and reads until the connection breaks.
func (ing *Ingest) streamOnce(ctx context.Context) error {
	url := ing.streamURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	log.Printf("[ws] connected to %s", url)

	// Unblock the blocking read on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData),
			time.Now().Add(5*time.Second))
	})

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		candle, closed, err := parseKlineEvent(data)
		if err != nil {
			log.Printf("[ws] parse error: %v", err)
			continue
		}
		if !closed {
			continue
		}

		if ing.OnKline != nil {
			ing.OnKline(candle)
		}
		if !ing.ring.Push(candle) {
			log.Printf("[ws] ring buffer full, dropping %s %d", candle.Symbol, candle.OpenTime)
		}
	}
}

// klineEvent is the combined-stream kline payload.
type klineEvent struct {
	Data struct {
		Symbol string `json:"s"`
		Kline  struct {
			OpenTime  int64  `json:"t"`
			CloseTime int64  `json:"T"`
			Interval  string `json:"i"`
			Open      string `json:"o"`
			Close     string `json:"c"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// parseKlineEvent decodes one stream message into a candle. The second return
// reports whether the bar is closed.
func parseKlineEvent(data []byte) (model.Candle, bool, error) {
	var ev klineEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return model.Candle{}, false, err
	}
	k := ev.Data.Kline
	if ev.Data.Symbol == "" {
		return model.Candle{}, false, fmt.Errorf("not a kline event")
	}

	candle := model.Candle{
		Symbol:    ev.Data.Symbol,
		Timeframe: k.Interval,
		OpenTime:  k.OpenTime,
		CloseTime: k.CloseTime,
	}
	for _, f := range []struct {
		raw string
		dst *float64
	}{
		{k.Open, &candle.Open},
		{k.High, &candle.High},
		{k.Low, &candle.Low},
		{k.Close, &candle.Close},
		{k.Volume, &candle.Volume},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return model.Candle{}, false, fmt.Errorf("kline %s/%d: %w", ev.Data.Symbol, k.OpenTime, err)
		}
		*f.dst = v
	}
	return candle, k.Closed, nil
}
