package model

// IndicatorFrame is a per-timestamp record of computed indicator values,
// index-aligned with the candle series that produced it.
//
// Indicator fields are pointers because early frames lack enough lookback
// history: a nil field means the indicator's warm-up window was not satisfied
// for the whole series, not that the value is zero.
type IndicatorFrame struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`

	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`

	RSI *float64 `json:"rsi,omitempty"`

	BBUpper  *float64 `json:"bb_upper,omitempty"`
	BBMiddle *float64 `json:"bb_middle,omitempty"`
	BBLower  *float64 `json:"bb_lower,omitempty"`
	BBWidth  *float64 `json:"bb_width,omitempty"`
}

// HasMACD reports whether both current MACD line and signal line are present.
func (f *IndicatorFrame) HasMACD() bool {
	return f.MACD != nil && f.MACDSignal != nil
}

// HasBollinger reports whether the Bollinger band values are present.
func (f *IndicatorFrame) HasBollinger() bool {
	return f.BBUpper != nil && f.BBLower != nil
}
