package main

import (
	"fmt"
	"time"

	"cryptoquant/internal/model"
)

func printReport(res *model.BacktestResult, showTrades bool) {
	r := res.Report

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║           BACKTEST COMPLETE              ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  Symbol:          %-22s ║\n", res.Symbol+" "+res.Timeframe)
	fmt.Printf("║  Candles:         %-22d ║\n", res.DataPoints)
	fmt.Printf("║  Signals:         %-22d ║\n", res.SignalCount)
	fmt.Printf("║  Round trips:     %-22d ║\n", r.TotalTrades)
	fmt.Println("╠══════════════════════════════════════════╣")
	fmt.Printf("║  Initial balance: %-22.2f ║\n", res.InitialBalance)
	fmt.Printf("║  Final balance:   %-22.2f ║\n", res.FinalBalance)
	fmt.Printf("║  Total return:    %-21.3f%% ║\n", r.TotalReturn)
	fmt.Printf("║  Max drawdown:    %-21.3f%% ║\n", r.MaxDrawdown)
	fmt.Printf("║  Win rate:        %-21.1f%% ║\n", r.WinRate)
	fmt.Printf("║  Profit factor:   %-22.3f ║\n", r.ProfitFactor)
	fmt.Printf("║  Sharpe ratio:    %-22.3f ║\n", r.SharpeRatio)
	fmt.Println("╚══════════════════════════════════════════╝")

	if res.ID != 0 {
		fmt.Printf("\nsaved as backtest #%d\n", res.ID)
	}

	if !showTrades || len(res.Trades) == 0 {
		return
	}

	fmt.Println("\ntrades:")
	for i, t := range res.Trades {
		ts := time.UnixMilli(t.Timestamp).UTC().Format("2006-01-02 15:04")
		fmt.Printf("  %2d. %s  %-4s %10.6f @ %12.4f  fee %8.4f  %s\n",
			i+1, ts, t.Side, t.Quantity, t.Price, t.Commission, t.Reason)
	}
}
