package indicator

import "math"

// Bollinger calculates Bollinger Bands: a simple moving average (middle band)
// plus/minus stdDev multiples of the rolling population standard deviation.
// Uses a preallocated circular buffer with a subtract-the-oldest running sum
// and an O(period) variance pass per update.
type Bollinger struct {
	period int
	stdDev float64

	buf   []float64 // preallocated circular buffer
	idx   int       // current write position
	count int       // total values received
	sum   float64

	upper  float64
	middle float64
	lower  float64
}

// NewBollinger creates Bollinger Bands with the given period and standard
// deviation multiplier (typically 20, 2.0).
func NewBollinger(period int, stdDev float64) *Bollinger {
	return &Bollinger{
		period: period,
		stdDev: stdDev,
		buf:    make([]float64, period),
	}
}

// Update feeds the next close price.
func (b *Bollinger) Update(price float64) {
	if b.count >= b.period {
		// Subtract the oldest value being overwritten
		b.sum -= b.buf[b.idx]
	}

	b.buf[b.idx] = price
	b.sum += price
	b.idx = (b.idx + 1) % b.period
	b.count++

	if b.count < b.period {
		return
	}

	mean := b.sum / float64(b.period)
	variance := 0.0
	for _, v := range b.buf {
		d := v - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(b.period))

	b.middle = mean
	b.upper = mean + b.stdDev*sd
	b.lower = mean - b.stdDev*sd
}

// Bands returns the current (upper, middle, lower) values. All zero until Ready.
func (b *Bollinger) Bands() (upper, middle, lower float64) {
	return b.upper, b.middle, b.lower
}

// Width returns the normalized band width (upper − lower) / middle × 100.
// Defined as 0 when middle ≤ 0, which also guards the warm-up window.
func (b *Bollinger) Width() float64 {
	if b.middle <= 0 {
		return 0
	}
	return (b.upper - b.lower) / b.middle * 100
}

// Ready reports whether the warm-up window has been satisfied.
func (b *Bollinger) Ready() bool { return b.count >= b.period }
