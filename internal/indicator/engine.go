package indicator

import (
	"cryptoquant/internal/model"
)

// Compute runs all configured indicators over a candle series and returns
// one IndicatorFrame per input candle, index-aligned and in the same order.
//
// Each indicator family degrades independently: if the whole series is too
// short for a family's warm-up window, that family's fields stay nil on every
// frame; otherwise the fields are present everywhere, with warm-up positions
// holding the neutral fallback (0 for MACD and Bollinger, 50 for RSI) so the
// series length invariant holds. An empty candle slice yields an empty,
// non-error result.
func Compute(candles []model.Candle, p Params) []model.IndicatorFrame {
	if len(candles) == 0 {
		return nil
	}

	n := len(candles)
	frames := make([]model.IndicatorFrame, n)

	withMACD := n >= p.MACDSlow+p.MACDSignal
	withRSI := n >= p.RSIPeriod+1
	withBB := n >= p.BBPeriod

	macd := NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal)
	rsi := NewRSI(p.RSIPeriod)
	bb := NewBollinger(p.BBPeriod, p.BBStdDev)

	for i, c := range candles {
		price := c.Close
		frames[i] = model.IndicatorFrame{
			Timestamp: c.OpenTime,
			Price:     price,
		}

		if withMACD {
			macd.Update(price)
			line, sig, hist := 0.0, 0.0, 0.0
			if macd.LineReady() {
				line = macd.Line()
			}
			if macd.SignalReady() {
				sig = macd.Signal()
				hist = macd.Histogram()
			}
			frames[i].MACD = ptr(line)
			frames[i].MACDSignal = ptr(sig)
			frames[i].MACDHistogram = ptr(hist)
		}

		if withRSI {
			rsi.Update(price)
			frames[i].RSI = ptr(rsi.Value())
		}

		if withBB {
			bb.Update(price)
			upper, middle, lower := bb.Bands()
			frames[i].BBUpper = ptr(upper)
			frames[i].BBMiddle = ptr(middle)
			frames[i].BBLower = ptr(lower)
			frames[i].BBWidth = ptr(bb.Width())
		}
	}

	return frames
}

func ptr(v float64) *float64 { return &v }
