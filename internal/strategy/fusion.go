package strategy

import (
	"sort"

	"cryptoquant/internal/model"
)

const (
	// quorum is the minimum number of agreeing indicator families required
	// to emit a composite signal.
	quorum = 2

	// familyCount is the total number of indicator families fused.
	familyCount = 3
)

// timestampBucket collects per-family events that fired at one timestamp.
type timestampBucket struct {
	price       float64
	buyReasons  []string
	sellReasons []string
}

// Detect runs the per-family detectors over a frame series and fuses their
// events into composite signals. A composite BUY (or SELL) is emitted only
// when at least two of the three families agree at the same timestamp; a
// split with fewer than two on either side emits nothing for that timestamp.
//
// Signals are returned in ascending timestamp order, and each signal's
// reasons preserve the detection order of its contributing families.
func Detect(frames []model.IndicatorFrame, cfg Config) []model.Signal {
	if len(frames) == 0 {
		return nil
	}

	events := detectMACDEvents(frames)
	events = append(events, detectRSIEvents(frames, cfg.RSIOversold, cfg.RSIOverbought)...)
	events = append(events, detectBollingerEvents(frames)...)

	buckets := make(map[int64]*timestampBucket)
	for _, ev := range events {
		b, ok := buckets[ev.timestamp]
		if !ok {
			b = &timestampBucket{price: ev.price}
			buckets[ev.timestamp] = b
		}
		if ev.typ == model.SignalBuy {
			b.buyReasons = append(b.buyReasons, ev.reason)
		} else {
			b.sellReasons = append(b.sellReasons, ev.reason)
		}
	}

	timestamps := make([]int64, 0, len(buckets))
	for ts := range buckets {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	var signals []model.Signal
	for _, ts := range timestamps {
		b := buckets[ts]

		if n := len(b.buyReasons); n >= quorum {
			signals = append(signals, composite(model.SignalBuy, ts, b.price, b.buyReasons, n))
		} else if n := len(b.sellReasons); n >= quorum {
			signals = append(signals, composite(model.SignalSell, ts, b.price, b.sellReasons, n))
		}
	}
	return signals
}

func composite(typ model.SignalType, ts int64, price float64, reasons []string, agreeing int) model.Signal {
	confidence := float64(agreeing) / familyCount
	if confidence > 1.0 {
		confidence = 1.0
	}
	return model.Signal{
		Type:        typ,
		Timestamp:   ts,
		Price:       price,
		Confidence:  confidence,
		Reasons:     reasons,
		FamilyCount: agreeing,
	}
}
