// Package metrics exposes Prometheus instrumentation plus the /metrics and
// /healthz HTTP endpoints for the backtest service.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backtest service.
type Metrics struct {
	// Market data plane
	KlinesFetched   *prometheus.CounterVec // labels: source=api|cache
	CacheMisses     prometheus.Counter
	WSReconnects    prometheus.Counter
	WSKlinesTotal   prometheus.Counter
	DroppedKlines   prometheus.Counter
	RedisWriteDur   prometheus.Histogram
	SQLiteCommitDur prometheus.Histogram

	// Analysis plane
	BacktestsTotal      *prometheus.CounterVec // labels: outcome=ok|error
	BacktestDur         prometheus.Histogram
	SignalsTotal        *prometheus.CounterVec // labels: type=BUY|SELL
	IndicatorComputeDur prometheus.Histogram
	TradesSimulated     prometheus.Counter

	// Ring buffer overflow between WS ingest and the cache writer
	RingBufOverflow prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		KlinesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoquant_klines_fetched_total",
			Help: "Candles served to callers (by source)",
		}, []string{"source"}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptoquant_kline_cache_misses_total",
			Help: "Candle requests that fell through to the exchange API",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptoquant_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),
		WSKlinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptoquant_ws_klines_total",
			Help: "Closed klines received from the WebSocket stream",
		}),
		DroppedKlines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptoquant_dropped_klines_total",
			Help: "Klines dropped before reaching the cache writer",
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptoquant_redis_write_duration_seconds",
			Help:    "Redis write latency",
			Buckets: prometheus.DefBuckets,
		}),
		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptoquant_sqlite_commit_duration_seconds",
			Help:    "SQLite commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		BacktestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoquant_backtests_total",
			Help: "Backtest runs (by outcome)",
		}, []string{"outcome"}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptoquant_backtest_duration_seconds",
			Help:    "Full backtest pipeline latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptoquant_signals_total",
			Help: "Composite signals emitted (by type)",
		}, []string{"type"}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptoquant_indicator_compute_duration_seconds",
			Help:    "Indicator engine latency per candle series",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		TradesSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptoquant_trades_simulated_total",
			Help: "Simulated fills appended to backtest ledgers",
		}),

		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptoquant_ringbuf_overflow_total",
			Help: "Ring buffer push overflows (dropped candles)",
		}),
	}

	prometheus.MustRegister(
		m.KlinesFetched,
		m.CacheMisses,
		m.WSReconnects,
		m.WSKlinesTotal,
		m.DroppedKlines,
		m.RedisWriteDur,
		m.SQLiteCommitDur,
		m.BacktestsTotal,
		m.BacktestDur,
		m.SignalsTotal,
		m.IndicatorComputeDur,
		m.TradesSimulated,
		m.RingBufOverflow,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	WSConnected    bool      `json:"ws_connected"`
	LastKlineTime  time.Time `json:"last_kline_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetWSConnected(v bool) {
	h.mu.Lock()
	h.WSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastKlineTime(t time.Time) {
	h.mu.Lock()
	h.LastKlineTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	klineAge := ""
	if !h.LastKlineTime.IsZero() {
		klineAge = time.Since(h.LastKlineTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		WSConnected     bool    `json:"ws_connected"`
		LastKlineTime   string  `json:"last_kline_time"`
		KlineAge        string  `json:"kline_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		WSConnected:     h.WSConnected,
		LastKlineTime:   h.LastKlineTime.Format(time.RFC3339),
		KlineAge:        klineAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
