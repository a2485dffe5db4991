// Package marketdata serves candle series cache-first: reads hit the hot
// cache, fall back to the exchange REST API, and write back on a miss. A
// refresh loop and a WebSocket drain keep the caches warm.
package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cryptoquant/internal/metrics"
	"cryptoquant/internal/model"
	"cryptoquant/internal/ringbuf"
)

// Service implements model.CandleProvider over a cache and an API client.
type Service struct {
	api   model.CandleProvider
	cache model.CandleCache // nil disables caching
	log   *slog.Logger
	met   *metrics.Metrics // nil disables instrumentation
}

// New creates a cache-first candle service. cache and met may be nil.
func New(api model.CandleProvider, cache model.CandleCache, log *slog.Logger, met *metrics.Metrics) *Service {
	return &Service{api: api, cache: cache, log: log, met: met}
}

// Klines returns up to limit candles for symbol/timeframe. A full cache hit
// is served as-is; anything less falls through to the API and the fresh
// series is written back. Cache errors degrade to the API, they never fail
// the read.
func (s *Service) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if s.cache != nil {
		cached, err := s.cache.Klines(ctx, symbol, timeframe, limit)
		if err != nil {
			s.log.Warn("kline cache read failed",
				slog.String("symbol", symbol), slog.Any("error", err))
		} else if len(cached) >= limit {
			s.count("cache", len(cached))
			return cached, nil
		}
		if s.met != nil {
			s.met.CacheMisses.Inc()
		}
	}

	candles, err := s.api.Klines(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	s.count("api", len(candles))

	if s.cache != nil && len(candles) > 0 {
		if err := s.cache.SaveKlines(ctx, candles); err != nil {
			s.log.Warn("kline cache write-back failed",
				slog.String("symbol", symbol), slog.Any("error", err))
		}
	}
	return candles, nil
}

func (s *Service) count(source string, n int) {
	if s.met != nil {
		s.met.KlinesFetched.WithLabelValues(source).Add(float64(n))
	}
}

// RefreshConfig drives the periodic cache refresh.
type RefreshConfig struct {
	Symbols   []string
	Timeframe string
	Limit     int
	Interval  time.Duration
}

// Run refreshes the cache for every configured symbol at the given interval
// until ctx is cancelled. Concurrent backtests keep reading their own candle
// snapshots; the refresh only ever adds newer bars to the caches.
func (s *Service) Run(ctx context.Context, cfg RefreshConfig) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", cfg.Interval)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, symbol := range cfg.Symbols {
				candles, err := s.api.Klines(ctx, symbol, cfg.Timeframe, cfg.Limit)
				if err != nil {
					s.log.Warn("refresh fetch failed",
						slog.String("symbol", symbol), slog.Any("error", err))
					continue
				}
				if s.cache == nil || len(candles) == 0 {
					continue
				}
				if err := s.cache.SaveKlines(ctx, candles); err != nil {
					s.log.Warn("refresh write failed",
						slog.String("symbol", symbol), slog.Any("error", err))
				}
			}
		}
	}
}

// DrainRing pops closed bars from the WebSocket ring buffer and writes them
// through the cache in small batches. Blocks until ctx is cancelled.
func (s *Service) DrainRing(ctx context.Context, ring *ringbuf.Ring) {
	const batchMax = 64
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch := make([]model.Candle, 0, batchMax)
			for len(batch) < batchMax {
				candle, ok := ring.Pop()
				if !ok {
					break
				}
				batch = append(batch, candle)
			}
			if len(batch) == 0 || s.cache == nil {
				continue
			}
			if err := s.cache.SaveKlines(ctx, batch); err != nil {
				s.log.Warn("ring drain write failed", slog.Any("error", err))
				if s.met != nil {
					s.met.DroppedKlines.Add(float64(len(batch)))
				}
			}
		}
	}
}
