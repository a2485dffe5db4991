package model

import "time"

// PerformanceReport aggregates round-trip trade pairs into performance
// metrics. Derived, read-only, produced once per backtest run.
type PerformanceReport struct {
	TotalReturn   float64 `json:"total_return"`  // percent of initial balance
	MaxDrawdown   float64 `json:"max_drawdown"`  // percent, >= 0
	SharpeRatio   float64 `json:"sharpe_ratio"`  // simplified, non-annualized
	WinRate       float64 `json:"win_rate"`      // percent of pairs with pnl > 0
	ProfitFactor  float64 `json:"profit_factor"` // gross profit / gross loss
	AvgProfit     float64 `json:"avg_profit"`
	AvgLoss       float64 `json:"avg_loss"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	FinalBalance  float64 `json:"final_balance"`
}

// BacktestResult is the full outcome of one backtest run: the report, the
// trade ledger, and the equity curve. The caller assigns the identifier via
// the ReportStore; the core never manages IDs itself.
type BacktestResult struct {
	ID             int64             `json:"id,omitempty"`
	Symbol         string            `json:"symbol"`
	Timeframe      string            `json:"timeframe"`
	StrategyName   string            `json:"strategy_name"`
	InitialBalance float64           `json:"initial_balance"`
	FinalBalance   float64           `json:"final_balance"`
	DataPoints     int               `json:"data_points"`
	SignalCount    int               `json:"signal_count"`
	Report         PerformanceReport `json:"report"`
	Trades         []TradeRecord     `json:"trades"`
	Equity         []EquitySnapshot  `json:"equity"`
	CreatedAt      time.Time         `json:"created_at"`
}
