package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5
	// Prices: 100, 102, 104, 103, 105
	//
	// Value 1: sum=100
	// Value 2: sum=202
	// Value 3: sum=306 → initial EMA = 306/3 = 102.0 (SMA seed)
	// Value 4: EMA = 103*0.5 + 102.0*0.5 = 102.5
	// Value 5: EMA = 105*0.5 + 102.5*0.5 = 103.75

	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.5, 103.75}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		ema.Update(p)
		if ema.Ready() != ready[i] {
			t.Errorf("value %d: Ready()=%v, want %v", i, ema.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "EMA(3)", ema.Value(), expected[i], 0.0001)
		}
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period3(t *testing.T) {
	// Hand-calculated RSI(3) for prices: 100, 101, 102, 101, 103
	// Deltas: +1, +1, -1, +2
	//
	// After delta 3 (SMA seed): avgGain=(1+1+0)/3=0.6667, avgLoss=(0+0+1)/3=0.3333
	//   RS=2 → RSI = 100 - 100/3 = 66.6667
	// After delta 4 (Wilder): avgGain=(0.6667*2+2)/3=1.1111, avgLoss=(0.3333*2)/3=0.2222
	//   RS=5 → RSI = 100 - 100/6 = 83.3333

	rsi := NewRSI(3)
	prices := []float64{100, 101, 102, 101, 103}
	for i, p := range prices {
		rsi.Update(p)
		wantReady := i >= 3
		if rsi.Ready() != wantReady {
			t.Errorf("value %d: Ready()=%v, want %v", i, rsi.Ready(), wantReady)
		}
	}
	assertClose(t, "RSI(3) final", rsi.Value(), 83.3333, 0.001)

	rsi2 := NewRSI(3)
	for _, p := range prices[:4] {
		rsi2.Update(p)
	}
	assertClose(t, "RSI(3) seed", rsi2.Value(), 66.6667, 0.001)
}

func TestRSI_FlatSeries_Neutral(t *testing.T) {
	// No movement at all: avgGain == avgLoss == 0 must map to the neutral 50,
	// not 100, because there is no strength to measure.
	rsi := NewRSI(14)
	for i := 0; i < 40; i++ {
		rsi.Update(250.0)
	}
	if !rsi.Ready() {
		t.Fatal("RSI not ready after 40 values")
	}
	assertClose(t, "flat RSI", rsi.Value(), 50.0, 0.0001)
}

func TestRSI_AlwaysInRange(t *testing.T) {
	rsi := NewRSI(5)
	prices := []float64{100, 180, 40, 200, 10, 300, 5, 400, 2, 500, 1, 600}
	for i, p := range prices {
		rsi.Update(p)
		v := rsi.Value()
		if v < 0 || v > 100 {
			t.Errorf("value %d: RSI %.4f out of [0,100]", i, v)
		}
	}
}

func TestRSI_AllGains_Is100(t *testing.T) {
	rsi := NewRSI(3)
	for _, p := range []float64{100, 101, 102, 103, 104} {
		rsi.Update(p)
	}
	assertClose(t, "monotonic RSI", rsi.Value(), 100.0, 0.0001)
}

// ────────────────────────────────────────────────────────────
// Bollinger Correctness
// ────────────────────────────────────────────────────────────

func TestBollinger_Correctness_Period3(t *testing.T) {
	// Prices: 100, 102, 104 with stdDev multiplier 2.
	// mean = 102
	// population variance = ((-2)² + 0² + 2²) / 3 = 8/3
	// sd = sqrt(8/3) ≈ 1.632993
	// upper = 102 + 2*sd ≈ 105.265986
	// lower = 102 - 2*sd ≈  98.734014
	// width = (upper-lower)/middle*100 ≈ 6.403894

	bb := NewBollinger(3, 2.0)
	for _, p := range []float64{100, 102, 104} {
		bb.Update(p)
	}
	if !bb.Ready() {
		t.Fatal("Bollinger not ready after period values")
	}

	upper, middle, lower := bb.Bands()
	assertClose(t, "BB middle", middle, 102.0, 0.0001)
	assertClose(t, "BB upper", upper, 105.265986, 0.0001)
	assertClose(t, "BB lower", lower, 98.734014, 0.0001)
	assertClose(t, "BB width", bb.Width(), 6.403894, 0.0001)
}

func TestBollinger_RollingWindow(t *testing.T) {
	// After a fourth value the oldest (100) drops out:
	// window = 102, 104, 106 → mean = 104, sd unchanged shape
	bb := NewBollinger(3, 2.0)
	for _, p := range []float64{100, 102, 104, 106} {
		bb.Update(p)
	}
	_, middle, _ := bb.Bands()
	assertClose(t, "BB rolled middle", middle, 104.0, 0.0001)
}

func TestBollinger_FlatSeries_ZeroWidth(t *testing.T) {
	bb := NewBollinger(20, 2.0)
	for i := 0; i < 60; i++ {
		bb.Update(42.0)
	}
	upper, middle, lower := bb.Bands()
	assertClose(t, "flat BB upper", upper, 42.0, 1e-9)
	assertClose(t, "flat BB lower", lower, 42.0, 1e-9)
	assertClose(t, "flat BB middle", middle, 42.0, 1e-9)
	assertClose(t, "flat BB width", bb.Width(), 0.0, 1e-9)
}

func TestBollinger_WidthGuard_NonPositiveMiddle(t *testing.T) {
	// Width is defined as 0 when middle ≤ 0.
	bb := NewBollinger(2, 2.0)
	bb.Update(-5)
	bb.Update(-7)
	assertClose(t, "negative middle width", bb.Width(), 0.0, 1e-9)
}

// ────────────────────────────────────────────────────────────
// MACD Correctness
// ────────────────────────────────────────────────────────────

func TestMACD_FlatSeries_ZeroHistogram(t *testing.T) {
	m := NewMACD(12, 26, 9)
	for i := 0; i < 60; i++ {
		m.Update(100.0)
	}
	if !m.SignalReady() {
		t.Fatal("MACD signal not ready after 60 values")
	}
	assertClose(t, "flat MACD line", m.Line(), 0.0, 1e-9)
	assertClose(t, "flat MACD signal", m.Signal(), 0.0, 1e-9)
	assertClose(t, "flat MACD histogram", m.Histogram(), 0.0, 1e-9)
}

func TestMACD_Correctness_SmallPeriods(t *testing.T) {
	// MACD(2, 3, 2) over prices 100, 102, 104, 106:
	//
	// fast EMA(2): seed (100+102)/2=101; mult=2/3
	//   v3: 104*2/3 + 101/3 = 103.0
	//   v4: 106*2/3 + 103/3 = 105.0
	// slow EMA(3): seed (100+102+104)/3=102; mult=1/2
	//   v4: 106*0.5 + 102*0.5 = 104.0
	// macd defined from v3: v3 = 103 - 102 = 1.0, v4 = 105 - 104 = 1.0
	// signal EMA(2) over macd values: seed (1.0+1.0)/2 = 1.0 at v4
	// histogram v4 = 1.0 - 1.0 = 0.0

	m := NewMACD(2, 3, 2)
	prices := []float64{100, 102, 104, 106}
	for _, p := range prices {
		m.Update(p)
	}
	if !m.LineReady() || !m.SignalReady() {
		t.Fatal("MACD not ready")
	}
	assertClose(t, "MACD line", m.Line(), 1.0, 0.0001)
	assertClose(t, "MACD signal", m.Signal(), 1.0, 0.0001)
	assertClose(t, "MACD histogram", m.Histogram(), 0.0, 0.0001)
}
