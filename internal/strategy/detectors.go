package strategy

import (
	"fmt"

	"cryptoquant/internal/model"
)

// familyEvent is one per-family directional detection prior to fusion.
type familyEvent struct {
	typ       model.SignalType
	timestamp int64
	price     float64
	reason    string
}

// detectMACDEvents scans consecutive frame pairs for MACD/signal-line
// crossings: golden cross (BUY) when macd moves from ≤ signal to > signal,
// death cross (SELL) on the mirror move.
func detectMACDEvents(frames []model.IndicatorFrame) []familyEvent {
	var events []familyEvent

	for i := 1; i < len(frames); i++ {
		cur, prev := &frames[i], &frames[i-1]
		if !cur.HasMACD() || !prev.HasMACD() {
			continue
		}

		switch {
		case *prev.MACD <= *prev.MACDSignal && *cur.MACD > *cur.MACDSignal:
			events = append(events, familyEvent{
				typ:       model.SignalBuy,
				timestamp: cur.Timestamp,
				price:     cur.Price,
				reason:    "MACD golden cross",
			})
		case *prev.MACD >= *prev.MACDSignal && *cur.MACD < *cur.MACDSignal:
			events = append(events, familyEvent{
				typ:       model.SignalSell,
				timestamp: cur.Timestamp,
				price:     cur.Price,
				reason:    "MACD death cross",
			})
		}
	}
	return events
}

// detectRSIEvents scans consecutive frame pairs for threshold reversals:
// BUY when RSI crosses up through oversold, SELL when it crosses down
// through overbought.
func detectRSIEvents(frames []model.IndicatorFrame, oversold, overbought float64) []familyEvent {
	var events []familyEvent

	for i := 1; i < len(frames); i++ {
		cur, prev := &frames[i], &frames[i-1]
		if cur.RSI == nil || prev.RSI == nil {
			continue
		}

		switch {
		case *prev.RSI <= oversold && *cur.RSI > oversold:
			events = append(events, familyEvent{
				typ:       model.SignalBuy,
				timestamp: cur.Timestamp,
				price:     cur.Price,
				reason:    fmt.Sprintf("RSI oversold rebound (RSI: %.2f)", *cur.RSI),
			})
		case *prev.RSI >= overbought && *cur.RSI < overbought:
			events = append(events, familyEvent{
				typ:       model.SignalSell,
				timestamp: cur.Timestamp,
				price:     cur.Price,
				reason:    fmt.Sprintf("RSI overbought pullback (RSI: %.2f)", *cur.RSI),
			})
		}
	}
	return events
}

// detectBollingerEvents checks each frame for band touches: BUY at or below
// the lower band, SELL at or above the upper band. Evaluated per frame, not
// as a crossing.
func detectBollingerEvents(frames []model.IndicatorFrame) []familyEvent {
	var events []familyEvent

	for i := range frames {
		f := &frames[i]
		if !f.HasBollinger() {
			continue
		}

		switch {
		case f.Price <= *f.BBLower:
			events = append(events, familyEvent{
				typ:       model.SignalBuy,
				timestamp: f.Timestamp,
				price:     f.Price,
				reason:    "price touched lower Bollinger band",
			})
		case f.Price >= *f.BBUpper:
			events = append(events, familyEvent{
				typ:       model.SignalSell,
				timestamp: f.Timestamp,
				price:     f.Price,
				reason:    "price touched upper Bollinger band",
			})
		}
	}
	return events
}
