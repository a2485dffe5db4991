package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV bar for a (symbol, timeframe) series.
// OpenTime and CloseTime are Unix milliseconds. OpenTime is the unique key
// within a series; sequences are ordered ascending by OpenTime with no
// duplicate OpenTime values.
type Candle struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Key returns a unique key for this candle's series: "symbol:timeframe".
func (c *Candle) Key() string {
	return c.Symbol + ":" + c.Timeframe
}

// Time returns the candle open time as a time.Time (UTC).
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// PriceMap builds a close-price lookup keyed by OpenTime. Used by the trade
// simulator to resolve signal execution prices.
func PriceMap(candles []Candle) map[int64]float64 {
	m := make(map[int64]float64, len(candles))
	for _, c := range candles {
		m[c.OpenTime] = c.Close
	}
	return m
}
