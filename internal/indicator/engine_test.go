package indicator

import (
	"testing"

	"cryptoquant/internal/model"
)

func series(closes ...float64) []model.Candle {
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "4h",
			OpenTime:  int64(i) * 14_400_000,
			CloseTime: int64(i+1)*14_400_000 - 1,
			Open:      c, High: c, Low: c, Close: c,
		}
	}
	return candles
}

func flatSeries(n int, price float64) []model.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return series(closes...)
}

func TestCompute_EmptyInput(t *testing.T) {
	frames := Compute(nil, DefaultParams())
	if len(frames) != 0 {
		t.Fatalf("expected empty result for empty input, got %d frames", len(frames))
	}
}

func TestCompute_IndexAligned(t *testing.T) {
	candles := flatSeries(60, 100)
	frames := Compute(candles, DefaultParams())

	if len(frames) != len(candles) {
		t.Fatalf("frame count %d != candle count %d", len(frames), len(candles))
	}
	for i, f := range frames {
		if f.Timestamp != candles[i].OpenTime {
			t.Errorf("frame %d: timestamp %d != candle open time %d", i, f.Timestamp, candles[i].OpenTime)
		}
		if f.Price != candles[i].Close {
			t.Errorf("frame %d: price %.2f != close %.2f", i, f.Price, candles[i].Close)
		}
	}
}

func TestCompute_ShortSeries_FamiliesDegradeIndependently(t *testing.T) {
	// 16 candles: enough for RSI(14), not for Bollinger(20) or MACD(26+9).
	frames := Compute(flatSeries(16, 100), DefaultParams())

	last := frames[len(frames)-1]
	if last.RSI == nil {
		t.Error("RSI should be present with 16 candles")
	}
	if last.MACD != nil || last.MACDSignal != nil {
		t.Error("MACD should be absent below slow+signal candles")
	}
	if last.BBUpper != nil || last.BBWidth != nil {
		t.Error("Bollinger should be absent below period candles")
	}
}

func TestCompute_WarmupFallbacks(t *testing.T) {
	frames := Compute(flatSeries(60, 100), DefaultParams())

	// First frame is inside every warm-up window: neutral fallbacks, present.
	first := frames[0]
	if first.MACD == nil || *first.MACD != 0 {
		t.Error("warm-up MACD should be present with fallback 0")
	}
	if first.RSI == nil || *first.RSI != 50 {
		t.Error("warm-up RSI should be present with fallback 50")
	}
	if first.BBWidth == nil || *first.BBWidth != 0 {
		t.Error("warm-up Bollinger width should be present with fallback 0")
	}
}

func TestCompute_FlatSeries_NeutralIndicators(t *testing.T) {
	// 60 flat bars: MACD histogram ≈ 0 throughout, Bollinger width ≈ 0.
	frames := Compute(flatSeries(60, 100), DefaultParams())

	for i, f := range frames {
		if f.MACDHistogram != nil {
			assertClose(t, "flat histogram", *f.MACDHistogram, 0.0, 1e-9)
		}
		if f.BBWidth != nil {
			assertClose(t, "flat width", *f.BBWidth, 0.0, 1e-9)
		}
		if f.RSI != nil && (*f.RSI < 0 || *f.RSI > 100) {
			t.Errorf("frame %d: RSI %.4f out of range", i, *f.RSI)
		}
	}
}

func TestCompute_BollingerWidthNonNegative(t *testing.T) {
	closes := []float64{100, 105, 95, 110, 90, 120, 80, 130, 70, 140,
		60, 150, 50, 160, 40, 170, 30, 180, 20, 190, 10, 200, 100, 105, 95}
	frames := Compute(series(closes...), DefaultParams())
	for i, f := range frames {
		if f.BBWidth != nil && *f.BBWidth < 0 {
			t.Errorf("frame %d: negative Bollinger width %.4f", i, *f.BBWidth)
		}
	}
}
