// Package sqlite persists backtest results, trade ledgers, and the kline
// cache in a single SQLite database opened in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cryptoquant/internal/metrics"
	"cryptoquant/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a single-writer SQLite store. It implements model.ReportStore and
// model.CandleCache.
type Store struct {
	db  *sql.DB
	met *metrics.Metrics // nil disables instrumentation
}

// WithMetrics attaches commit-latency instrumentation to the store.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.met = m
	return s
}

func (s *Store) observeCommit(start time.Time) {
	if s.met != nil {
		s.met.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database at dbPath with WAL mode and the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer connection pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS klines (
			symbol     TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			open_time  INTEGER NOT NULL,
			close_time INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			PRIMARY KEY (symbol, timeframe, open_time)
		);

		CREATE TABLE IF NOT EXISTS backtest_results (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol          TEXT    NOT NULL,
			timeframe       TEXT    NOT NULL,
			strategy_name   TEXT    NOT NULL,
			initial_balance REAL    NOT NULL,
			final_balance   REAL    NOT NULL,
			data_points     INTEGER NOT NULL,
			signal_count    INTEGER NOT NULL,
			report          TEXT    NOT NULL,
			equity          TEXT    NOT NULL,
			created_at      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS backtest_trades (
			backtest_id INTEGER NOT NULL REFERENCES backtest_results(id),
			seq         INTEGER NOT NULL,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT    NOT NULL,
			side        TEXT    NOT NULL,
			quantity    REAL    NOT NULL,
			price       REAL    NOT NULL,
			commission  REAL    NOT NULL,
			reason      TEXT,
			PRIMARY KEY (backtest_id, seq)
		);

		CREATE INDEX IF NOT EXISTS idx_backtests_symbol
			ON backtest_results(symbol, created_at DESC);
	`)
	return err
}

// SaveBacktest persists a result with its full trade ledger in one
// transaction and returns the assigned id.
func (s *Store) SaveBacktest(ctx context.Context, res *model.BacktestResult) (int64, error) {
	defer s.observeCommit(time.Now())

	report, err := json.Marshal(res.Report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}
	equity, err := json.Marshal(res.Equity)
	if err != nil {
		return 0, fmt.Errorf("marshal equity: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO backtest_results
			(symbol, timeframe, strategy_name, initial_balance, final_balance,
			 data_points, signal_count, report, equity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, res.Symbol, res.Timeframe, res.StrategyName, res.InitialBalance, res.FinalBalance,
		res.DataPoints, res.SignalCount, string(report), string(equity), res.CreatedAt.UnixMilli())
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite insert backtest: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades
			(backtest_id, seq, timestamp, symbol, side, quantity, price, commission, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for seq, t := range res.Trades {
		if _, err := stmt.ExecContext(ctx, id, seq, t.Timestamp, t.Symbol, t.Side,
			t.Quantity, t.Price, t.Commission, t.Reason); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("sqlite insert trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Backtests returns recent results without their trade ledgers, newest first.
// symbol filters when non-empty.
func (s *Store) Backtests(ctx context.Context, symbol string, limit int) ([]model.BacktestResult, error) {
	query := `
		SELECT id, symbol, timeframe, strategy_name, initial_balance, final_balance,
		       data_points, signal_count, report, created_at
		FROM backtest_results`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query backtests: %w", err)
	}
	defer rows.Close()

	var results []model.BacktestResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// BacktestDetail returns one result including its trade ledger, or nil, nil
// when the id is unknown.
func (s *Store) BacktestDetail(ctx context.Context, id int64) (*model.BacktestResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, timeframe, strategy_name, initial_balance, final_balance,
		       data_points, signal_count, report, created_at
		FROM backtest_results WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite query backtest: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	res, err := scanResult(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	trades, err := s.db.QueryContext(ctx, `
		SELECT timestamp, symbol, side, quantity, price, commission, reason
		FROM backtest_trades WHERE backtest_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer trades.Close()

	for trades.Next() {
		var t model.TradeRecord
		var reason sql.NullString
		if err := trades.Scan(&t.Timestamp, &t.Symbol, &t.Side, &t.Quantity,
			&t.Price, &t.Commission, &reason); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.Reason = reason.String
		res.Trades = append(res.Trades, t)
	}
	return res, trades.Err()
}

func scanResult(rows *sql.Rows) (*model.BacktestResult, error) {
	var res model.BacktestResult
	var report string
	var createdAt int64
	if err := rows.Scan(&res.ID, &res.Symbol, &res.Timeframe, &res.StrategyName,
		&res.InitialBalance, &res.FinalBalance, &res.DataPoints, &res.SignalCount,
		&report, &createdAt); err != nil {
		return nil, fmt.Errorf("sqlite scan backtest: %w", err)
	}
	if err := json.Unmarshal([]byte(report), &res.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	res.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &res, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
