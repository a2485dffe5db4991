// Package indicator provides technical indicator calculations over candle data.
//
// The primitives (EMA, RSI, Bollinger) are incremental: O(1) state updated
// one close price at a time. Compute drives them across a full candle series
// and assembles index-aligned IndicatorFrames with the documented warm-up
// fallbacks (MACD 0, RSI 50, Bollinger 0).
package indicator

// Params specifies the lookback windows for one Compute pass.
type Params struct {
	MACDFast   int
	MACDSlow   int
	MACDSignal int

	RSIPeriod int

	BBPeriod int
	BBStdDev float64
}

// DefaultParams returns the standard parameter set (MACD 12/26/9, RSI 14,
// Bollinger 20/2.0).
func DefaultParams() Params {
	return Params{
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		RSIPeriod:  14,
		BBPeriod:   20,
		BBStdDev:   2.0,
	}
}
