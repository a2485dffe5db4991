package indicator

// RSI calculates the Relative Strength Index using Wilder's smoothing method.
// Update is O(1) per value — no history scans.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	current   float64
}

// NewRSI creates a new RSI with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period, current: 50}
}

// Update feeds the next close price.
func (r *RSI) Update(price float64) {
	r.count++

	if r.count == 1 {
		// First value — just record price, no delta yet
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain := 0.0
	loss := 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count <= r.period+1 {
		// Accumulation phase: build initial averages
		r.avgGain += gain
		r.avgLoss += loss

		if r.count == r.period+1 {
			// First RSI value using SMA seed
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = r.ratio()
		}
		return
	}

	// Wilder's smoothing: avgGain = (prevAvgGain * (period-1) + gain) / period
	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = r.ratio()
}

func (r *RSI) ratio() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			// No movement at all — neutral, not "fully overbought"
			return 50.0
		}
		return 100.0
	}
	rs := r.avgGain / r.avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// Value returns the current RSI in [0, 100]. Returns the neutral value 50
// until Ready.
func (r *RSI) Value() float64 { return r.current }

// Ready reports whether the warm-up window has been satisfied.
func (r *RSI) Ready() bool { return r.count > r.period }
