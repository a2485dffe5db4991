// cmd/backtest runs one strategy backtest against historical Binance klines
// and prints the performance report. Results are persisted to SQLite unless
// --no-persist is set.
//
// Usage:
//
//	go run ./cmd/backtest --symbol=BTCUSDT --tf=1h --limit=200 --balance=10000
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoquant/config"
	"cryptoquant/internal/backtest"
	"cryptoquant/internal/logger"
	"cryptoquant/internal/marketdata"
	"cryptoquant/internal/marketdata/binance"
	"cryptoquant/internal/model"
	redisstore "cryptoquant/internal/store/redis"
	sqlitestore "cryptoquant/internal/store/sqlite"
	"cryptoquant/internal/strategy"
)

func main() {
	cfg := config.Load()

	symbol := flag.String("symbol", "BTCUSDT", "Trading pair")
	timeframe := flag.String("tf", cfg.Timeframe, "Kline interval (1m, 5m, 1h, 4h, 1d)")
	limit := flag.Int("limit", cfg.KlineLimit, "Number of candles to fetch")
	balance := flag.Float64("balance", cfg.InitialBalance, "Initial balance")
	commission := flag.Float64("commission", cfg.CommissionRate, "Taker fee fraction per fill")
	noPersist := flag.Bool("no-persist", false, "Skip saving the result to SQLite")
	showTrades := flag.Bool("trades", false, "Print the full trade ledger")

	macdFast := flag.Int("macd-fast", 12, "MACD fast EMA period")
	macdSlow := flag.Int("macd-slow", 26, "MACD slow EMA period")
	macdSignal := flag.Int("macd-signal", 9, "MACD signal EMA period")
	rsiPeriod := flag.Int("rsi-period", 14, "RSI period")
	rsiOversold := flag.Float64("rsi-oversold", 30, "RSI oversold threshold")
	rsiOverbought := flag.Float64("rsi-overbought", 70, "RSI overbought threshold")
	bbPeriod := flag.Int("bb-period", 20, "Bollinger period")
	bbStdDev := flag.Float64("bb-stddev", 2.0, "Bollinger standard deviation multiplier")
	maxPos := flag.Float64("max-position", 0.1, "Max position size as fraction of balance")
	flag.Parse()

	log := logger.Init("backtest", slog.LevelInfo)

	scfg := strategy.DefaultConfig()
	scfg.MACDFastPeriod = *macdFast
	scfg.MACDSlowPeriod = *macdSlow
	scfg.MACDSignalPeriod = *macdSignal
	scfg.RSIPeriod = *rsiPeriod
	scfg.RSIOversold = *rsiOversold
	scfg.RSIOverbought = *rsiOverbought
	scfg.BBPeriod = *bbPeriod
	scfg.BBStdDev = *bbStdDev
	scfg.MaxPositionSize = *maxPos

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ctx = logger.WithTraceID(ctx, logger.RunTraceID(*symbol, time.Now()))

	api := binance.New(cfg.BinanceBaseURL)

	// The Redis hot cache is optional for a one-shot run.
	provider := marketdata.New(api, nil, log, nil)
	if cache, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}); err == nil {
		defer cache.Close()
		provider = marketdata.New(api, cache, log, nil)
	} else {
		log.Warn("redis unavailable, reading straight from the API", slog.Any("error", err))
	}

	var store model.ReportStore
	if !*noPersist {
		s, err := sqlitestore.New(cfg.SQLitePath)
		if err != nil {
			log.Error("sqlite open failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	eng := backtest.NewEngine(provider, store, log).WithCommissionRate(*commission)
	res, err := eng.Run(ctx, backtest.Request{
		Symbol:         *symbol,
		Timeframe:      *timeframe,
		Limit:          *limit,
		InitialBalance: *balance,
		Config:         scfg,
	})
	if err != nil && res == nil {
		log.Error("backtest failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err != nil {
		// Persistence failed but the run itself completed.
		log.Warn("result not persisted", slog.Any("error", err))
	}

	printReport(res, *showTrades)
}
