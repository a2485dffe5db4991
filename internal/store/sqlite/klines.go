package sqlite

import (
	"context"
	"fmt"
	"log"
	"time"

	"cryptoquant/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Klines reads cached candles for symbol/timeframe, ordered ascending by
// open_time, returning at most the limit most recent bars. A cache miss is
// nil, nil.
func (s *Store) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, open_time, close_time, open, high, low, close, volume
		FROM (
			SELECT * FROM klines
			WHERE symbol = ? AND timeframe = ?
			ORDER BY open_time DESC LIMIT ?
		) ORDER BY open_time ASC
	`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query klines: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.OpenTime, &c.CloseTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan kline: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// SaveKlines upserts candles in a single transaction.
func (s *Store) SaveKlines(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	defer s.observeCommit(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO klines
			(symbol, timeframe, open_time, close_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.Timeframe, c.OpenTime, c.CloseTime,
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert kline: %w", err)
		}
	}
	return tx.Commit()
}

// Run reads candles from candleCh and inserts them in batched transactions.
// Flushes every defaultBatchSize candles OR every defaultFlushDelay,
// whichever comes first. Blocks until ctx is cancelled or candleCh is closed.
func (s *Store) Run(ctx context.Context, candleCh <-chan model.Candle) {
	batch := make([]model.Candle, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := s.SaveKlines(context.Background(), batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d klines in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case candle, ok := <-candleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, candle)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// LastOpenTime returns the newest cached open_time for symbol/timeframe, or
// 0 when the cache is empty.
func (s *Store) LastOpenTime(ctx context.Context, symbol, timeframe string) (int64, error) {
	var ts *int64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(open_time) FROM klines WHERE symbol = ? AND timeframe = ?`,
		symbol, timeframe,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if ts == nil {
		return 0, nil
	}
	return *ts, nil
}
