package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cryptoquant/internal/indicator"
	"cryptoquant/internal/model"
)

// Analysis is the outcome of one symbol analysis: the aligned indicator
// frames and the composite signals fused from them.
type Analysis struct {
	Symbol      string                 `json:"symbol"`
	Timeframe   string                 `json:"timeframe"`
	Frames      []model.IndicatorFrame `json:"indicators"`
	Signals     []model.Signal         `json:"signals"`
	SignalCount int                    `json:"signal_count"`
	DataPoints  int                    `json:"data_points"`
}

// Engine orchestrates the analysis pipeline: fetch candles from a provider,
// compute indicators, and fuse signals. One Engine may serve concurrent
// analyses — each call owns its own candle snapshot and intermediate state.
type Engine struct {
	provider model.CandleProvider
	log      *slog.Logger
}

// NewEngine creates an analysis engine over the given candle provider.
func NewEngine(provider model.CandleProvider, log *slog.Logger) *Engine {
	return &Engine{provider: provider, log: log}
}

// AnalyzeSymbol fetches up to limit candles for symbol/timeframe, computes
// indicator frames, and fuses composite signals.
//
// An invalid config or an empty candle series is fatal to the run; an
// insufficient series for any one indicator family is not — that family
// simply stays absent from the frames.
func (e *Engine) AnalyzeSymbol(ctx context.Context, symbol, timeframe string, limit int, cfg Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	candles, err := e.provider.Klines(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s/%s: %w", symbol, timeframe, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", symbol, timeframe, model.ErrNoHistoricalData)
	}

	frames := indicator.Compute(candles, cfg.IndicatorParams())
	signals := Detect(frames, cfg)
	for i := range signals {
		signals[i].Symbol = symbol
		signals[i].Timeframe = timeframe
	}

	e.log.Info("analysis completed",
		slog.String("symbol", symbol),
		slog.String("timeframe", timeframe),
		slog.Int("data_points", len(frames)),
		slog.Int("signals", len(signals)))

	return &Analysis{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Frames:      frames,
		Signals:     signals,
		SignalCount: len(signals),
		DataPoints:  len(frames),
	}, nil
}

// LatestSignals returns the most recent signals (up to max) for a symbol.
func (e *Engine) LatestSignals(ctx context.Context, symbol, timeframe string, max int, cfg Config) ([]model.Signal, error) {
	res, err := e.AnalyzeSymbol(ctx, symbol, timeframe, 100, cfg)
	if err != nil {
		return nil, err
	}
	signals := res.Signals
	if len(signals) > max {
		signals = signals[len(signals)-max:]
	}
	return signals, nil
}

// CurrentIndicators returns the latest indicator frame for a symbol.
func (e *Engine) CurrentIndicators(ctx context.Context, symbol, timeframe string, cfg Config) (*model.IndicatorFrame, error) {
	res, err := e.AnalyzeSymbol(ctx, symbol, timeframe, 50, cfg)
	if err != nil {
		return nil, err
	}
	if len(res.Frames) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", symbol, timeframe, model.ErrNoHistoricalData)
	}
	last := res.Frames[len(res.Frames)-1]
	return &last, nil
}

// Strength grades recent signal pressure for one symbol.
type Strength struct {
	Strength    string        `json:"strength"` // strong_buy, buy, neutral, sell, strong_sell
	Confidence  float64       `json:"confidence"`
	BuySignals  int           `json:"buy_signals"`
	SellSignals int           `json:"sell_signals"`
	Total       int           `json:"total_signals"`
	Latest      *model.Signal `json:"latest_signal,omitempty"`
}

// EvaluateStrength grades the last few signals into a coarse directional
// strength with the average confidence across them.
func (e *Engine) EvaluateStrength(ctx context.Context, symbol, timeframe string, cfg Config) (*Strength, error) {
	recent, err := e.LatestSignals(ctx, symbol, timeframe, 5, cfg)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return &Strength{Strength: "neutral"}, nil
	}

	buys, sells := 0, 0
	confSum := 0.0
	for _, s := range recent {
		if s.Type == model.SignalBuy {
			buys++
		} else {
			sells++
		}
		confSum += s.Confidence
	}

	grade := "neutral"
	switch {
	case buys > sells*2:
		grade = "strong_buy"
	case buys > sells:
		grade = "buy"
	case sells > buys*2:
		grade = "strong_sell"
	case sells > buys:
		grade = "sell"
	}

	latest := recent[len(recent)-1]
	return &Strength{
		Strength:    grade,
		Confidence:  confSum / float64(len(recent)),
		BuySignals:  buys,
		SellSignals: sells,
		Total:       len(recent),
		Latest:      &latest,
	}, nil
}

// BatchItem is the per-symbol outcome of a batch analysis.
type BatchItem struct {
	Symbol      string `json:"symbol"`
	Success     bool   `json:"success"`
	SignalCount int    `json:"signal_count"`
	Error       string `json:"error,omitempty"`
}

// BatchSummary aggregates a batch analysis across symbols.
type BatchSummary struct {
	Items        []BatchItem `json:"items"`
	Succeeded    int         `json:"succeeded"`
	TotalSignals int         `json:"total_signals"`
}

// BatchAnalyze analyzes each symbol independently and in parallel. Runs share
// no mutable state, so a failure in one symbol never affects the others.
func (e *Engine) BatchAnalyze(ctx context.Context, symbols []string, timeframe string, cfg Config) *BatchSummary {
	items := make([]BatchItem, len(symbols))

	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			res, err := e.AnalyzeSymbol(ctx, symbol, timeframe, 100, cfg)
			if err != nil {
				e.log.Error("batch analysis failed",
					slog.String("symbol", symbol), slog.Any("error", err))
				items[i] = BatchItem{Symbol: symbol, Error: err.Error()}
				return
			}
			items[i] = BatchItem{Symbol: symbol, Success: true, SignalCount: res.SignalCount}
		}(i, symbol)
	}
	wg.Wait()

	summary := &BatchSummary{Items: items}
	for _, it := range items {
		if it.Success {
			summary.Succeeded++
			summary.TotalSignals += it.SignalCount
		}
	}
	return summary
}
