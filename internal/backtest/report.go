package backtest

import (
	"math"

	"cryptoquant/internal/model"
)

// tradePair is one matched round trip: a BUY and its FIFO-paired SELL.
type tradePair struct {
	pnl       float64
	returnPct float64
	holdTime  int64 // milliseconds
}

// Analyze reduces a simulation ledger into a performance report.
//
// BUY fills queue FIFO; each SELL pairs with the oldest unmatched BUY. All
// pair metrics (win rate, profit factor, Sharpe) are computed over round
// trips. With no completed pairs the report is all-zero except TotalTrades,
// which then falls back to the raw fill count.
func Analyze(ledger *Ledger, initialBalance float64) model.PerformanceReport {
	pairs := pairTrades(ledger.Trades)

	report := model.PerformanceReport{FinalBalance: ledger.FinalBalance}
	if len(pairs) == 0 {
		report.TotalTrades = len(ledger.Trades)
		return report
	}

	totalPnl := 0.0
	returns := make([]float64, len(pairs))
	for i, p := range pairs {
		totalPnl += p.pnl
		returns[i] = p.returnPct

		if p.pnl > 0 {
			report.WinningTrades++
			report.GrossProfit += p.pnl
		} else {
			report.LosingTrades++
			report.GrossLoss += -p.pnl
		}
	}

	report.TotalTrades = len(pairs)
	report.TotalReturn = totalPnl / initialBalance * 100
	report.WinRate = float64(report.WinningTrades) / float64(len(pairs)) * 100
	if report.GrossLoss > 0 {
		report.ProfitFactor = report.GrossProfit / report.GrossLoss
	}
	if report.WinningTrades > 0 {
		report.AvgProfit = report.GrossProfit / float64(report.WinningTrades)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = report.GrossLoss / float64(report.LosingTrades)
	}
	report.SharpeRatio = sharpe(returns)
	report.MaxDrawdown = maxDrawdown(ledger.Equity, initialBalance)
	return report
}

// pairTrades matches fills into round trips: oldest unmatched BUY first.
func pairTrades(trades []model.TradeRecord) []tradePair {
	var open tradeQueue
	var pairs []tradePair

	for _, t := range trades {
		if t.Side == string(model.SignalBuy) {
			open.push(t)
			continue
		}
		buy, ok := open.pop()
		if !ok {
			continue
		}
		pnl := (t.Price-buy.Price)*buy.Quantity - buy.Commission - t.Commission
		pairs = append(pairs, tradePair{
			pnl:       pnl,
			returnPct: pnl / (buy.Price * buy.Quantity) * 100,
			holdTime:  t.Timestamp - buy.Timestamp,
		})
	}
	return pairs
}

// sharpe is the simplified per-trade ratio: mean over population stddev of
// pair return percentages, not annualized. Zero with fewer than two pairs or
// a zero stddev.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(len(returns)))
	if sd == 0 {
		return 0
	}
	return mean / sd
}

// maxDrawdown walks the equity curve tracking the running peak, seeded at the
// initial balance. Never negative.
func maxDrawdown(equity []model.EquitySnapshot, initialBalance float64) float64 {
	peak := initialBalance
	max := 0.0
	for _, snap := range equity {
		if snap.TotalValue > peak {
			peak = snap.TotalValue
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - snap.TotalValue) / peak * 100
		if dd > max {
			max = dd
		}
	}
	return max
}
