// cmd/analyze runs signal analysis across a batch of symbols and prints the
// per-symbol outcome. It fetches candles cache-first but never persists
// results: analysis is a read-only look at current signal pressure.
//
// Usage:
//
//	go run ./cmd/analyze --symbols=BTCUSDT,ETHUSDT --tf=4h
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cryptoquant/config"
	"cryptoquant/internal/logger"
	"cryptoquant/internal/marketdata"
	"cryptoquant/internal/marketdata/binance"
	"cryptoquant/internal/notification"
	"cryptoquant/internal/strategy"
	redisstore "cryptoquant/internal/store/redis"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "Comma-separated pairs (default: SYMBOLS env)")
	timeframe := flag.String("tf", "1h", "Kline interval")
	latest := flag.Bool("latest", false, "Also print the latest signals per symbol")
	notify := flag.Bool("notify", false, "Send the latest signal per symbol to configured alert backends")
	flag.Parse()

	log := logger.Init("analyze", slog.LevelInfo)
	cfg := config.Load()

	symbols := cfg.ParseSymbols()
	if *symbolsFlag != "" {
		symbols = nil
		for _, s := range strings.Split(*symbolsFlag, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
	}
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols to analyze")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	api := binance.New(cfg.BinanceBaseURL)
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

	eng := strategy.NewEngine(provider, log)
	scfg := strategy.DefaultConfig()

	summary := eng.BatchAnalyze(ctx, symbols, *timeframe, scfg)

	fmt.Printf("\nanalyzed %d symbols on %s: %d ok, %d signals total\n\n",
		len(summary.Items), *timeframe, summary.Succeeded, summary.TotalSignals)
	for _, item := range summary.Items {
		if !item.Success {
			fmt.Printf("  %-10s FAILED  %s\n", item.Symbol, item.Error)
			continue
		}
		fmt.Printf("  %-10s ok      %d signals\n", item.Symbol, item.SignalCount)
	}

	if !*latest && !*notify {
		return
	}

	notifier := buildNotifier(cfg, *notify)

	if *latest {
		fmt.Println("\nlatest signals:")
	}
	for _, item := range summary.Items {
		if !item.Success {
			continue
		}
		signals, err := eng.LatestSignals(ctx, item.Symbol, *timeframe, 3, scfg)
		if err != nil || len(signals) == 0 {
			continue
		}
		if *latest {
			for _, s := range signals {
				ts := time.UnixMilli(s.Timestamp).UTC().Format("2006-01-02 15:04")
				fmt.Printf("  %-10s %s %-4s @ %12.4f  conf %.2f  %s\n",
					s.Symbol, ts, s.Type, s.Price, s.Confidence, strings.Join(s.Reasons, "; "))
			}
		}
		if notifier != nil {
			newest := signals[len(signals)-1]
			if err := notifier.Send(ctx, notification.SignalAlert(newest)); err != nil {
				log.Warn("alert delivery failed",
					slog.String("symbol", newest.Symbol), slog.Any("error", err))
			}
		}
	}
}

// buildNotifier assembles the alert fan-out from env config. The log backend
// is always included so --notify is observable even without credentials.
func buildNotifier(cfg *config.Config, enabled bool) notification.Notifier {
	if !enabled {
		return nil
	}
	fan := notification.Fanout{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		fan = append(fan, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.AlertWebhookURL != "" {
		fan = append(fan, notification.NewWebhookNotifier(cfg.AlertWebhookURL))
	}
	return fan
}
