package indicator

// MACD calculates the Moving Average Convergence Divergence line, its signal
// line, and the histogram:
//
//	macd      = EMA(close, fast) − EMA(close, slow)
//	signal    = EMA(macd, signalPeriod)
//	histogram = macd − signal
//
// The signal EMA is fed only once the slow EMA is ready, so its warm-up
// counts from the first defined MACD value.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	line float64
	sig  float64
}

// NewMACD creates a MACD with the given fast, slow, and signal periods.
// fast must be < slow; the caller validates.
func NewMACD(fast, slow, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signalPeriod),
	}
}

// Update feeds the next close price.
func (m *MACD) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)

	if !m.slow.Ready() {
		return
	}

	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.line)
	if m.signal.Ready() {
		m.sig = m.signal.Value()
	}
}

// Line returns the current MACD line value. Returns 0 until LineReady.
func (m *MACD) Line() float64 { return m.line }

// Signal returns the current signal line value. Returns 0 until SignalReady.
func (m *MACD) Signal() float64 { return m.sig }

// Histogram returns macd − signal (0 until both lines are defined).
func (m *MACD) Histogram() float64 { return m.line - m.sig }

// LineReady reports whether the MACD line is defined.
func (m *MACD) LineReady() bool { return m.slow.Ready() }

// SignalReady reports whether the signal line is defined.
func (m *MACD) SignalReady() bool { return m.signal.Ready() }
