package strategy

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate, got: %v", err)
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MACDFastPeriod = 26
	cfg.MACDSlowPeriod = 12
	cfg.RSIPeriod = 0
	cfg.MaxPositionSize = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Violations) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(verr.Violations), verr.Violations)
	}
	for _, want := range []string{"macd_fast_period", "rsi_period", "max_position_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error message missing %q: %s", want, err.Error())
		}
	}
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RSIOversold = 70
	cfg.RSIOverbought = 30

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "oversold") {
		t.Fatalf("expected rsi threshold violation, got: %v", err)
	}
}

func TestValidate_RiskBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero stop loss", func(c *Config) { c.StopLossPercent = 0 }},
		{"stop loss over 50", func(c *Config) { c.StopLossPercent = 51 }},
		{"zero take profit", func(c *Config) { c.TakeProfitPercent = 0 }},
		{"zero position size", func(c *Config) { c.MaxPositionSize = 0 }},
		{"bb stddev too small", func(c *Config) { c.BBStdDev = 0.05 }},
		{"bb period too large", func(c *Config) { c.BBPeriod = 201 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if cfg.Validate() == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
