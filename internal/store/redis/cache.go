// Package redis caches recent candle series in Redis sorted sets, keyed by
// symbol and timeframe with the candle open time as the score. The cache is
// best-effort: reads fall back to the exchange API on a miss and writes go
// through a circuit breaker so a dead Redis never stalls the data plane.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"cryptoquant/internal/metrics"
	"cryptoquant/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Keep roughly two weeks of hourly bars per series.
	cacheMaxLen = 400
	cacheTTL    = 30 * time.Minute

	breakerMaxFailures  = 5
	breakerResetTimeout = 10 * time.Second
)

// Config configures the Redis cache connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int

	// Metrics enables write-latency instrumentation when non-nil.
	Metrics *metrics.Metrics
}

// Cache is a hot candle cache implementing model.CandleCache.
type Cache struct {
	client  *goredis.Client
	breaker *Breaker
	met     *metrics.Metrics
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New connects to Redis and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	breaker := NewBreaker(breakerMaxFailures, breakerResetTimeout)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{client: client, breaker: breaker, met: cfg.Metrics}, nil
}

func seriesKey(symbol, timeframe string) string {
	return "klines:" + symbol + ":" + timeframe
}

// Klines reads up to the limit most recent cached candles, ascending by open
// time. A missing or expired key is a miss (nil, nil), as is an open breaker.
func (c *Cache) Klines(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	key := seriesKey(symbol, timeframe)

	var raw []string
	err := c.breaker.Do(func() error {
		var err error
		raw, err = c.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
		return err
	})
	if err == ErrBreakerOpen {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	// ZRevRange returns newest first; decode into ascending order.
	candles := make([]model.Candle, len(raw))
	for i, data := range raw {
		var cd model.Candle
		if err := json.Unmarshal([]byte(data), &cd); err != nil {
			return nil, fmt.Errorf("redis decode %s: %w", key, err)
		}
		candles[len(raw)-1-i] = cd
	}
	return candles, nil
}

// SaveKlines writes candles into their series sets, trims each series to
// cacheMaxLen, and refreshes the TTL. Scores are open times, so re-writing a
// bar replaces it.
func (c *Cache) SaveKlines(ctx context.Context, candles []model.Candle) error {
	byKey := make(map[string][]*goredis.Z)
	for i := range candles {
		cd := &candles[i]
		byKey[seriesKey(cd.Symbol, cd.Timeframe)] = append(
			byKey[seriesKey(cd.Symbol, cd.Timeframe)],
			&goredis.Z{Score: float64(cd.OpenTime), Member: string(cd.JSON())},
		)
	}

	start := time.Now()
	defer func() {
		if c.met != nil {
			c.met.RedisWriteDur.Observe(time.Since(start).Seconds())
		}
	}()

	return c.breaker.Do(func() error {
		pipe := c.client.Pipeline()
		for key, members := range byKey {
			// Old entries for the same open time first, so updated bars
			// don't accumulate as duplicates.
			for _, z := range members {
				score := strconv.FormatFloat(z.Score, 'f', -1, 64)
				pipe.ZRemRangeByScore(ctx, key, score, score)
			}
			pipe.ZAdd(ctx, key, members...)
			pipe.ZRemRangeByRank(ctx, key, 0, int64(-cacheMaxLen-1))
			pipe.Expire(ctx, key, cacheTTL)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
