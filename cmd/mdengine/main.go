// cmd/mdengine is the market data daemon: it streams live klines over
// WebSocket into the Redis and SQLite caches, refreshes the REST snapshot
// periodically, and serves /metrics and /healthz.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"cryptoquant/config"
	"cryptoquant/internal/logger"
	"cryptoquant/internal/marketdata"
	"cryptoquant/internal/marketdata/binance"
	"cryptoquant/internal/marketdata/ws"
	"cryptoquant/internal/metrics"
	"cryptoquant/internal/model"
	"cryptoquant/internal/ringbuf"
	redisstore "cryptoquant/internal/store/redis"
	sqlitestore "cryptoquant/internal/store/sqlite"
)

func main() {
	log := logger.Init("mdengine", slog.LevelInfo)
	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	log.Info("starting", slog.Any("symbols", symbols), slog.String("timeframe", cfg.Timeframe))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		metricsSrv.Stop(shutdownCtx)
	}()

	hot, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Metrics:  prom,
	})
	if err != nil {
		log.Error("redis connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer hot.Close()

	durable, err := sqlitestore.New(cfg.SQLitePath)
	if err != nil {
		log.Error("sqlite open failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer durable.Close()
	durable.WithMetrics(prom)

	health.SetRedisConnected(true)
	health.SetSQLiteOK(true)
	health.StartLivenessChecker(ctx, hot.Client(), durable.DB(), 15*time.Second)

	// Durable writes go through the batched single-writer loop so bursts
	// from the WS stream coalesce into few transactions.
	durableCh := make(chan model.Candle, 1024)
	go durable.Run(ctx, durableCh)

	cache := &tieredCache{hot: hot, durable: durable, durableCh: durableCh}
	api := binance.New(cfg.BinanceBaseURL)
	svc := marketdata.New(api, cache, log, prom)

	backfillGaps(ctx, svc, durable, symbols, cfg.Timeframe, cfg.KlineLimit, log)

	// Live stream: WS -> ring -> caches.
	ring := ringbuf.New(4096)
	ingest := ws.New(ws.IngestConfig{
		StreamURL: cfg.BinanceWSURL,
		Symbols:   symbols,
		Timeframe: cfg.Timeframe,
	}, ring)
	ingest.OnReconnect = func() {
		prom.WSReconnects.Inc()
		health.SetWSConnected(false)
	}
	ingest.OnKline = func(c model.Candle) {
		prom.WSKlinesTotal.Inc()
		health.SetWSConnected(true)
		health.SetLastKlineTime(time.UnixMilli(c.CloseTime).UTC())
	}

	go func() {
		if err := ingest.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("ws ingest stopped", slog.Any("error", err))
		}
	}()
	go svc.DrainRing(ctx, ring)

	// Track ring overflow in the background.
	go func() {
		var last uint64
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := ring.Overflow(); n > last {
					prom.RingBufOverflow.Add(float64(n - last))
					last = n
				}
			}
		}
	}()

	// REST snapshot refresh keeps gaps out of the caches.
	err = svc.Run(ctx, marketdata.RefreshConfig{
		Symbols:   symbols,
		Timeframe: cfg.Timeframe,
		Limit:     cfg.KlineLimit,
		Interval:  time.Duration(cfg.RefreshInterval) * time.Second,
	})
	if err != nil && ctx.Err() == nil {
		log.Error("refresh loop stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// backfillGaps fetches a wider initial snapshot per symbol when the durable
// cache is stale, sized to the bars missed since the newest stored open time.
func backfillGaps(ctx context.Context, svc *marketdata.Service, durable *sqlitestore.Store,
	symbols []string, timeframe string, defaultLimit int, log *slog.Logger) {

	tfDur := timeframeDuration(timeframe)
	for _, symbol := range symbols {
		limit := defaultLimit
		last, err := durable.LastOpenTime(ctx, symbol, timeframe)
		switch {
		case err != nil:
			log.Warn("last open time lookup failed", slog.String("symbol", symbol), slog.Any("error", err))
		case last == 0:
			limit = 1000
		case tfDur > 0:
			missed := int(time.Since(time.UnixMilli(last))/tfDur) + 1
			if missed > limit {
				limit = missed
			}
			if limit > 1000 {
				limit = 1000
			}
			log.Info("backfill window",
				slog.String("symbol", symbol),
				slog.Int("missed_bars", missed),
				slog.Int("limit", limit))
		}
		// The cache-first read falls through to the API and writes back
		// into both cache tiers.
		if _, err := svc.Klines(ctx, symbol, timeframe, limit); err != nil {
			log.Warn("backfill fetch failed", slog.String("symbol", symbol), slog.Any("error", err))
		}
	}
}

// timeframeDuration parses Binance interval notation ("1m", "4h", "1d").
// Returns 0 on anything it cannot parse.
func timeframeDuration(tf string) time.Duration {
	if len(tf) < 2 {
		return 0
	}
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0
	}
	switch tf[len(tf)-1] {
	case 'm':
		return time.Duration(n) * time.Minute
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour
	}
	return 0
}

// tieredCache reads the hot Redis cache first and falls back to SQLite;
// writes hit Redis synchronously and reach SQLite through the batched
// single-writer channel, so a Redis flush never loses history.
type tieredCache struct {
	hot       *redisstore.Cache
	durable   *sqlitestore.Store
	durableCh chan<- model.Candle
}

func (t *tieredCache) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if candles, err := t.hot.Klines(ctx, symbol, timeframe, limit); err == nil && candles != nil {
		return candles, nil
	}
	return t.durable.Klines(ctx, symbol, timeframe, limit)
}

func (t *tieredCache) SaveKlines(ctx context.Context, candles []model.Candle) error {
	if err := t.hot.SaveKlines(ctx, candles); err != nil {
		return err
	}
	for _, c := range candles {
		select {
		case t.durableCh <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *tieredCache) Close() error {
	t.hot.Close()
	return t.durable.Close()
}
