// cmd/api serves the REST surface: on-demand analysis, backtest runs, and
// the persisted backtest history. Candles come cache-first through Redis
// when it is reachable, straight from the exchange REST API otherwise.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoquant/config"
	"cryptoquant/internal/api"
	"cryptoquant/internal/backtest"
	"cryptoquant/internal/logger"
	"cryptoquant/internal/marketdata"
	"cryptoquant/internal/marketdata/binance"
	"cryptoquant/internal/metrics"
	"cryptoquant/internal/strategy"
	redisstore "cryptoquant/internal/store/redis"
	sqlitestore "cryptoquant/internal/store/sqlite"
)

func main() {
	log := logger.Init("api", slog.LevelInfo)
	cfg := config.Load()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		metricsSrv.Stop(shutdownCtx)
	}()

	exchange := binance.New(cfg.BinanceBaseURL)
	provider := marketdata.New(exchange, nil, log, prom)
	if cache, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Metrics:  prom,
	}); err == nil {
		defer cache.Close()
		provider = marketdata.New(exchange, cache, log, prom)
		health.SetRedisConnected(true)
	} else {
		log.Warn("redis unavailable, reading straight from the API", slog.Any("error", err))
	}

	store, err := sqlitestore.New(cfg.SQLitePath)
	if err != nil {
		log.Error("sqlite open failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()
	store.WithMetrics(prom)
	health.SetSQLiteOK(true)

	srv := api.New(cfg.APIAddr,
		strategy.NewEngine(provider, log),
		backtest.NewEngine(provider, store, log).
			WithMetrics(prom).
			WithCommissionRate(cfg.CommissionRate),
		store, provider, log).
		WithInitialBalance(cfg.InitialBalance)
	srv.Start()
	defer srv.Stop()

	<-sigCh
	log.Info("shutting down")
}
