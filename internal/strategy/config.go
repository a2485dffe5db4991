// Package strategy turns indicator frames into composite trading signals.
//
// Three indicator families (MACD cross, RSI reversal, Bollinger touch) are
// detected independently; Detect fuses them into BUY/SELL signals when a
// quorum of families agrees at the same timestamp. The Engine orchestrates
// the full analysis pipeline against a candle provider.
package strategy

import (
	"fmt"
	"strings"

	"cryptoquant/internal/indicator"
)

// Config is the validated parameter bundle threading through indicator
// computation, signal fusion, and trade simulation.
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// MACD parameters
	MACDFastPeriod   int `json:"macd_fast_period"`
	MACDSlowPeriod   int `json:"macd_slow_period"`
	MACDSignalPeriod int `json:"macd_signal_period"`

	// RSI parameters
	RSIPeriod     int     `json:"rsi_period"`
	RSIOversold   float64 `json:"rsi_oversold"`
	RSIOverbought float64 `json:"rsi_overbought"`

	// Bollinger parameters
	BBPeriod int     `json:"bb_period"`
	BBStdDev float64 `json:"bb_std_dev"`

	// Risk management
	StopLossPercent   float64 `json:"stop_loss_percent"`
	TakeProfitPercent float64 `json:"take_profit_percent"`
	MaxPositionSize   float64 `json:"max_position_size"` // fraction of balance
}

// DefaultConfig returns the standard multi-indicator strategy configuration.
func DefaultConfig() Config {
	return Config{
		Name:              "Multi-Indicator Strategy",
		Description:       "MACD + RSI + Bollinger Bands combined strategy",
		MACDFastPeriod:    12,
		MACDSlowPeriod:    26,
		MACDSignalPeriod:  9,
		RSIPeriod:         14,
		RSIOversold:       30,
		RSIOverbought:     70,
		BBPeriod:          20,
		BBStdDev:          2.0,
		StopLossPercent:   2.0,
		TakeProfitPercent: 4.0,
		MaxPositionSize:   0.1,
	}
}

// IndicatorParams maps the config onto indicator lookback parameters.
func (c Config) IndicatorParams() indicator.Params {
	return indicator.Params{
		MACDFast:   c.MACDFastPeriod,
		MACDSlow:   c.MACDSlowPeriod,
		MACDSignal: c.MACDSignalPeriod,
		RSIPeriod:  c.RSIPeriod,
		BBPeriod:   c.BBPeriod,
		BBStdDev:   c.BBStdDev,
	}
}

// ValidationError reports every violated configuration constraint, not just
// the first. It is fatal to the run it belongs to.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid strategy config: " + strings.Join(e.Violations, "; ")
}

// Validate checks every constraint and returns a *ValidationError listing all
// violations, or nil when the config is valid.
func (c Config) Validate() error {
	var violations []string

	if c.MACDFastPeriod >= c.MACDSlowPeriod {
		violations = append(violations,
			fmt.Sprintf("macd_fast_period (%d) must be less than macd_slow_period (%d)",
				c.MACDFastPeriod, c.MACDSlowPeriod))
	}
	if c.MACDFastPeriod < 1 {
		violations = append(violations,
			fmt.Sprintf("macd_fast_period (%d) must be at least 1", c.MACDFastPeriod))
	}
	if c.MACDSignalPeriod < 1 {
		violations = append(violations,
			fmt.Sprintf("macd_signal_period (%d) must be at least 1", c.MACDSignalPeriod))
	}
	if c.RSIPeriod < 1 || c.RSIPeriod > 100 {
		violations = append(violations,
			fmt.Sprintf("rsi_period (%d) must be in [1, 100]", c.RSIPeriod))
	}
	if !(c.RSIOversold >= 0 && c.RSIOversold < c.RSIOverbought && c.RSIOverbought <= 100) {
		violations = append(violations,
			fmt.Sprintf("rsi thresholds must satisfy 0 <= oversold (%.1f) < overbought (%.1f) <= 100",
				c.RSIOversold, c.RSIOverbought))
	}
	if c.BBPeriod < 1 || c.BBPeriod > 200 {
		violations = append(violations,
			fmt.Sprintf("bb_period (%d) must be in [1, 200]", c.BBPeriod))
	}
	if c.BBStdDev < 0.1 || c.BBStdDev > 5.0 {
		violations = append(violations,
			fmt.Sprintf("bb_std_dev (%.2f) must be in [0.1, 5.0]", c.BBStdDev))
	}
	if !(c.StopLossPercent > 0 && c.StopLossPercent <= 50) {
		violations = append(violations,
			fmt.Sprintf("stop_loss_percent (%.2f) must be in (0, 50]", c.StopLossPercent))
	}
	if !(c.TakeProfitPercent > 0 && c.TakeProfitPercent <= 100) {
		violations = append(violations,
			fmt.Sprintf("take_profit_percent (%.2f) must be in (0, 100]", c.TakeProfitPercent))
	}
	if !(c.MaxPositionSize > 0 && c.MaxPositionSize <= 1) {
		violations = append(violations,
			fmt.Sprintf("max_position_size (%.3f) must be in (0, 1]", c.MaxPositionSize))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
