// Package api exposes the analysis and backtest pipeline over REST. It is a
// thin JSON layer over the strategy and backtest engines plus the report
// store; all domain behavior lives in those packages.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cryptoquant/internal/backtest"
	"cryptoquant/internal/model"
	"cryptoquant/internal/strategy"
)

// Server wires the HTTP routes to the engines.
type Server struct {
	analysis *strategy.Engine
	backtest *backtest.Engine
	store    model.ReportStore // may be nil; history endpoints then 404
	provider model.CandleProvider
	log      *slog.Logger

	defaultBalance float64

	srv *http.Server
}

func New(addr string, analysis *strategy.Engine, bt *backtest.Engine, store model.ReportStore, provider model.CandleProvider, log *slog.Logger) *Server {
	s := &Server{
		analysis:       analysis,
		backtest:       bt,
		store:          store,
		provider:       provider,
		log:            log,
		defaultBalance: 10000,
	}
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
}

// WithInitialBalance overrides the default starting balance for backtest
// requests that omit one.
func (s *Server) WithInitialBalance(balance float64) *Server {
	if balance > 0 {
		s.defaultBalance = balance
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("api server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server failed", slog.Any("error", err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	return s.srv.Close()
}

// setCORS sets CORS headers for REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/signals", s.handleSignals)
	mux.HandleFunc("/api/indicators", s.handleIndicators)
	mux.HandleFunc("/api/strength", s.handleStrength)
	mux.HandleFunc("/api/klines", s.handleKlines)
	mux.HandleFunc("/api/backtest", s.handleRunBacktest)
	mux.HandleFunc("/api/backtests", s.handleListBacktests)
	mux.HandleFunc("/api/backtests/", s.handleBacktestDetail)
	mux.HandleFunc("/api/config", s.handleConfig)
}

// symbolParams pulls the common symbol/tf/limit query triple.
func symbolParams(r *http.Request) (symbol, timeframe string, limit int, ok bool) {
	q := r.URL.Query()
	symbol = q.Get("symbol")
	if symbol == "" {
		return "", "", 0, false
	}
	timeframe = q.Get("tf")
	if timeframe == "" {
		timeframe = "1h"
	}
	limit = 100
	if ls := q.Get("limit"); ls != "" {
		if l, err := strconv.Atoi(ls); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	return symbol, timeframe, limit, true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	symbol, tf, limit, ok := symbolParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	res, err := s.analysis.AnalyzeSymbol(r.Context(), symbol, tf, limit, strategy.DefaultConfig())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	symbol, tf, limit, ok := symbolParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if limit > 20 {
		limit = 20
	}
	signals, err := s.analysis.LatestSignals(r.Context(), symbol, tf, limit, strategy.DefaultConfig())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if signals == nil {
		signals = []model.Signal{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":    symbol,
		"timeframe": tf,
		"signals":   signals,
	})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol, tf, _, ok := symbolParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	frame, err := s.analysis.CurrentIndicators(r.Context(), symbol, tf, strategy.DefaultConfig())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleStrength(w http.ResponseWriter, r *http.Request) {
	symbol, tf, _, ok := symbolParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	strength, err := s.analysis.EvaluateStrength(r.Context(), symbol, tf, strategy.DefaultConfig())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strength)
}

func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol, tf, limit, ok := symbolParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	candles, err := s.provider.Klines(r.Context(), symbol, tf, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if candles == nil {
		candles = []model.Candle{}
	}
	writeJSON(w, http.StatusOK, candles)
}

// backtestRequest is the POST /api/backtest body. Omitted strategy fields
// fall back to the defaults: config is decoded over a prefilled
// DefaultConfig so a partial override keeps the remaining parameters.
type backtestRequest struct {
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	Limit          int             `json:"limit"`
	InitialBalance float64         `json:"initial_balance"`
	Config         json.RawMessage `json:"config,omitempty"`
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var body backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if body.Timeframe == "" {
		body.Timeframe = "1h"
	}
	if body.Limit <= 0 {
		body.Limit = 500
	}
	if body.InitialBalance <= 0 {
		body.InitialBalance = s.defaultBalance
	}
	cfg := strategy.DefaultConfig()
	if len(body.Config) > 0 {
		if err := json.Unmarshal(body.Config, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid config")
			return
		}
	}

	res, err := s.backtest.Run(r.Context(), backtest.Request{
		Symbol:         body.Symbol,
		Timeframe:      body.Timeframe,
		Limit:          body.Limit,
		InitialBalance: body.InitialBalance,
		Config:         cfg,
	})
	if err != nil && res == nil {
		s.writeEngineError(w, err)
		return
	}
	if err != nil {
		// Persistence failed but the run is complete; serve the result.
		s.log.Warn("backtest not persisted", slog.Any("error", err))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}
	q := r.URL.Query()
	limit := 20
	if ls := q.Get("limit"); ls != "" {
		if l, err := strconv.Atoi(ls); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	results, err := s.store.Backtests(r.Context(), q.Get("symbol"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []model.BacktestResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleBacktestDetail(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}
	idStr := r.URL.Path[len("/api/backtests/"):]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid backtest id")
		return
	}
	res, err := s.store.BacktestDetail(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "backtest not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, strategy.DefaultConfig())
}

// writeEngineError maps pipeline errors to HTTP statuses: validation errors
// are the caller's fault, missing history is a 404, anything else a 502.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var verr *strategy.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, model.ErrNoHistoricalData):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
