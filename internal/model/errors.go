package model

import "errors"

// ErrNoHistoricalData is returned when a candle provider yields an empty
// series for the requested range. Fatal to that run, and distinct from a
// configuration failure.
var ErrNoHistoricalData = errors.New("no historical data available")
