package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cryptoquant/internal/indicator"
	"cryptoquant/internal/metrics"
	"cryptoquant/internal/model"
	"cryptoquant/internal/strategy"
)

// Request describes one backtest run.
type Request struct {
	Symbol         string
	Timeframe      string
	Limit          int
	InitialBalance float64
	Config         strategy.Config
}

// Engine drives the full backtest pipeline: fetch candles, compute
// indicators, fuse signals, simulate trades, and analyze the ledger. Results
// are persisted through the report store when one is configured.
type Engine struct {
	provider       model.CandleProvider
	store          model.ReportStore // nil disables persistence
	log            *slog.Logger
	commissionRate float64
	met            *metrics.Metrics // nil disables instrumentation
}

// NewEngine creates a backtest engine. store may be nil to skip persistence.
func NewEngine(provider model.CandleProvider, store model.ReportStore, log *slog.Logger) *Engine {
	return &Engine{
		provider:       provider,
		store:          store,
		log:            log,
		commissionRate: DefaultCommissionRate,
	}
}

// WithMetrics attaches Prometheus instrumentation to the engine.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.met = m
	return e
}

// WithCommissionRate overrides the default taker fee fraction. Non-positive
// rates are ignored.
func (e *Engine) WithCommissionRate(rate float64) *Engine {
	if rate > 0 {
		e.commissionRate = rate
	}
	return e
}

func (e *Engine) countRun(outcome string) {
	if e.met != nil {
		e.met.BacktestsTotal.WithLabelValues(outcome).Inc()
	}
}

// Run executes one backtest. The context governs the candle fetch only; once
// simulation starts the run completes atomically. When persistence fails the
// returned result is still complete and valid alongside the error.
func (e *Engine) Run(ctx context.Context, req Request) (*model.BacktestResult, error) {
	if err := req.Config.Validate(); err != nil {
		e.countRun("error")
		return nil, err
	}

	candles, err := e.provider.Klines(ctx, req.Symbol, req.Timeframe, req.Limit)
	if err != nil {
		e.countRun("error")
		return nil, fmt.Errorf("fetch klines %s/%s: %w", req.Symbol, req.Timeframe, err)
	}
	if len(candles) == 0 {
		e.countRun("error")
		return nil, fmt.Errorf("%s/%s: %w", req.Symbol, req.Timeframe, model.ErrNoHistoricalData)
	}

	started := time.Now()
	frames := indicator.Compute(candles, req.Config.IndicatorParams())
	if e.met != nil {
		e.met.IndicatorComputeDur.Observe(time.Since(started).Seconds())
	}
	signals := strategy.Detect(frames, req.Config)
	for i := range signals {
		signals[i].Symbol = req.Symbol
		signals[i].Timeframe = req.Timeframe
		if e.met != nil {
			e.met.SignalsTotal.WithLabelValues(string(signals[i].Type)).Inc()
		}
	}

	ledger := Simulate(candles, signals, req.InitialBalance, req.Config, e.commissionRate)
	report := Analyze(ledger, req.InitialBalance)

	result := &model.BacktestResult{
		Symbol:         req.Symbol,
		Timeframe:      req.Timeframe,
		StrategyName:   req.Config.Name,
		InitialBalance: req.InitialBalance,
		FinalBalance:   ledger.FinalBalance,
		DataPoints:     len(candles),
		SignalCount:    len(signals),
		Report:         report,
		Trades:         ledger.Trades,
		Equity:         ledger.Equity,
		CreatedAt:      time.Now().UTC(),
	}

	e.log.Info("backtest completed",
		slog.String("symbol", req.Symbol),
		slog.String("timeframe", req.Timeframe),
		slog.Int("data_points", result.DataPoints),
		slog.Int("signals", result.SignalCount),
		slog.Int("trades", len(result.Trades)),
		slog.Float64("final_balance", result.FinalBalance),
		slog.Duration("elapsed", time.Since(started)))

	e.countRun("ok")
	if e.met != nil {
		e.met.BacktestDur.Observe(time.Since(started).Seconds())
		e.met.TradesSimulated.Add(float64(len(result.Trades)))
	}

	if e.store != nil {
		id, err := e.store.SaveBacktest(ctx, result)
		if err != nil {
			return result, fmt.Errorf("save backtest: %w", err)
		}
		result.ID = id
	}
	return result, nil
}
