package model

import "context"

// ── Port Interfaces ──
// These interfaces decouple the backtest core from concrete collaborators
// (exchange REST client, Redis cache, SQLite store). Each implementation
// satisfies one or more of these interfaces.

// CandleProvider fetches ordered candle series for a (symbol, timeframe).
// Implementations must return candles sorted ascending by OpenTime with no
// duplicate OpenTime values, and may return fewer than limit if history is
// short.
type CandleProvider interface {
	// Klines returns up to limit most recent candles for symbol/timeframe.
	Klines(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// CandleCache is a read/write candle store sitting in front of a provider.
type CandleCache interface {
	// Klines reads cached candles. Returns nil, nil on a cache miss.
	Klines(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)

	// SaveKlines writes candles back to the cache.
	SaveKlines(ctx context.Context, candles []Candle) error

	// Close releases underlying resources.
	Close() error
}

// ReportStore persists backtest results and their trade ledgers.
// A store failure leaves the in-memory BacktestResult valid and returnable.
type ReportStore interface {
	// SaveBacktest persists a result with its trades and returns the
	// store-assigned identifier.
	SaveBacktest(ctx context.Context, res *BacktestResult) (int64, error)

	// Backtests returns recent results (without trades), newest first.
	// symbol filters when non-empty.
	Backtests(ctx context.Context, symbol string, limit int) ([]BacktestResult, error)

	// BacktestDetail returns one result including its trade ledger.
	// Returns nil, nil when the id is unknown.
	BacktestDetail(ctx context.Context, id int64) (*BacktestResult, error)

	// Close releases underlying resources.
	Close() error
}
