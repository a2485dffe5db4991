package strategy

import (
	"strings"
	"testing"

	"cryptoquant/internal/indicator"
	"cryptoquant/internal/model"
)

func fptr(v float64) *float64 { return &v }

func frame(ts int64, price float64) model.IndicatorFrame {
	return model.IndicatorFrame{Timestamp: ts, Price: price}
}

func flatCandles(n int, price float64) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		candles[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			OpenTime:  int64(i) * 3_600_000,
			CloseTime: int64(i+1)*3_600_000 - 1,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    1,
		}
	}
	return candles
}

// A flat price series produces no crossings, no reversals and no band
// touches, so fusion must stay silent end to end.
func TestDetect_FlatSeries_NoSignals(t *testing.T) {
	cfg := DefaultConfig()
	frames := indicator.Compute(flatCandles(60, 100), cfg.IndicatorParams())

	signals := Detect(frames, cfg)
	if len(signals) != 0 {
		t.Fatalf("expected zero signals on flat series, got %d: %+v", len(signals), signals)
	}
}

// A MACD golden cross and an RSI oversold rebound at the same timestamp meet
// the two-family quorum and fuse into exactly one BUY.
func TestDetect_TwoFamilyAgreement_SingleBuy(t *testing.T) {
	const ts = int64(7_200_000)

	prev := frame(3_600_000, 100)
	prev.MACD = fptr(-1)
	prev.MACDSignal = fptr(0)
	prev.RSI = fptr(25)

	cur := frame(ts, 101)
	cur.MACD = fptr(1)
	cur.MACDSignal = fptr(0)
	cur.RSI = fptr(35)

	signals := Detect([]model.IndicatorFrame{prev, cur}, DefaultConfig())
	if len(signals) != 1 {
		t.Fatalf("expected exactly 1 signal, got %d: %+v", len(signals), signals)
	}

	sig := signals[0]
	if sig.Type != model.SignalBuy {
		t.Errorf("expected BUY, got %s", sig.Type)
	}
	if sig.Timestamp != ts {
		t.Errorf("expected timestamp %d, got %d", ts, sig.Timestamp)
	}
	if sig.Price != 101 {
		t.Errorf("expected price 101, got %v", sig.Price)
	}
	if want := float64(2) / 3; sig.Confidence != want {
		t.Errorf("expected confidence %v, got %v", want, sig.Confidence)
	}
	if sig.FamilyCount != 2 {
		t.Errorf("expected 2 agreeing families, got %d", sig.FamilyCount)
	}
	if len(sig.Reasons) != 2 {
		t.Fatalf("expected 2 reasons, got %v", sig.Reasons)
	}
	if sig.Reasons[0] != "MACD golden cross" {
		t.Errorf("expected MACD reason first, got %q", sig.Reasons[0])
	}
	if !strings.HasPrefix(sig.Reasons[1], "RSI oversold rebound") {
		t.Errorf("expected RSI reason second, got %q", sig.Reasons[1])
	}
}

// A single family firing alone stays below quorum.
func TestDetect_SingleFamily_NoSignal(t *testing.T) {
	prev := frame(0, 100)
	prev.MACD = fptr(-1)
	prev.MACDSignal = fptr(0)

	cur := frame(3_600_000, 101)
	cur.MACD = fptr(1)
	cur.MACDSignal = fptr(0)

	if got := Detect([]model.IndicatorFrame{prev, cur}, DefaultConfig()); len(got) != 0 {
		t.Fatalf("expected no signals below quorum, got %+v", got)
	}
}

// Opposing families at the same timestamp split 1-1 and cancel out.
func TestDetect_OpposingFamilies_Cancel(t *testing.T) {
	prev := frame(0, 100)
	prev.MACD = fptr(-1)
	prev.MACDSignal = fptr(0)
	prev.RSI = fptr(75)

	cur := frame(3_600_000, 101)
	cur.MACD = fptr(1)
	cur.MACDSignal = fptr(0)
	cur.RSI = fptr(65)

	if got := Detect([]model.IndicatorFrame{prev, cur}, DefaultConfig()); len(got) != 0 {
		t.Fatalf("expected split vote to cancel, got %+v", got)
	}
}

// All three families agreeing yields full confidence.
func TestDetect_ThreeFamilyAgreement_FullConfidence(t *testing.T) {
	prev := frame(0, 100)
	prev.MACD = fptr(-1)
	prev.MACDSignal = fptr(0)
	prev.RSI = fptr(25)

	cur := frame(3_600_000, 90)
	cur.MACD = fptr(1)
	cur.MACDSignal = fptr(0)
	cur.RSI = fptr(35)
	cur.BBLower = fptr(92)
	cur.BBMiddle = fptr(100)
	cur.BBUpper = fptr(108)

	signals := Detect([]model.IndicatorFrame{prev, cur}, DefaultConfig())
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %+v", signals)
	}
	if signals[0].Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", signals[0].Confidence)
	}
	if signals[0].FamilyCount != 3 {
		t.Errorf("expected 3 families, got %d", signals[0].FamilyCount)
	}
}

// Signals come back sorted by timestamp regardless of detection order.
func TestDetect_SignalsSortedByTimestamp(t *testing.T) {
	mk := func(ts int64, prevRSI, curRSI float64) (model.IndicatorFrame, model.IndicatorFrame) {
		p := frame(ts-3_600_000, 100)
		p.MACD = fptr(-1)
		p.MACDSignal = fptr(0)
		p.RSI = fptr(prevRSI)
		c := frame(ts, 101)
		c.MACD = fptr(1)
		c.MACDSignal = fptr(0)
		c.RSI = fptr(curRSI)
		return p, c
	}

	// Two independent buy setups, later one first in the slice has no
	// effect on output order since buckets are sorted.
	p1, c1 := mk(7_200_000, 25, 35)
	p2, c2 := mk(14_400_000, 25, 35)

	signals := Detect([]model.IndicatorFrame{p1, c1, p2, c2}, DefaultConfig())
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %+v", signals)
	}
	if signals[0].Timestamp >= signals[1].Timestamp {
		t.Errorf("signals not sorted ascending: %d then %d",
			signals[0].Timestamp, signals[1].Timestamp)
	}
}

func TestDetect_EmptyFrames(t *testing.T) {
	if got := Detect(nil, DefaultConfig()); got != nil {
		t.Fatalf("expected nil for empty input, got %+v", got)
	}
}
