package indicator

// MACD is the difference of a fast and a slow EMA, with a signal line that is
// an EMA of the MACD line itself. Both lines are reported as not ready until
// slow+signal values have been seen.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA

	warmup int
	count  int

	line float64
	sig  float64
}

// NewMACD creates a MACD with the given spans (typically 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
		warmup: slow + signal,
	}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(v float64) {
	m.count++
	m.fast.Update(v)
	m.slow.Update(v)

	if !m.slow.Ready() {
		return
	}
	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.line)
	if m.signal.Ready() {
		m.sig = m.signal.Value()
	}
}

// Value returns the MACD line.
func (m *MACD) Value() float64 { return m.line }

// Signal returns the signal line.
func (m *MACD) Signal() float64 { return m.sig }

// Histogram returns MACD minus signal.
func (m *MACD) Histogram() float64 { return m.line - m.sig }

func (m *MACD) Ready() bool { return m.count > m.warmup }

// Peek returns the MACD line that feeding v would produce.
func (m *MACD) Peek(v float64) float64 {
	line, _ := m.PeekBoth(v)
	return line
}

// PeekBoth returns the MACD and signal lines that feeding v would produce.
func (m *MACD) PeekBoth(v float64) (line, signal float64) {
	if m.count+1 < m.slow.period {
		return 0, 0
	}
	line = m.fast.Peek(v) - m.slow.Peek(v)
	return line, m.signal.Peek(line)
}

// Reset clears the MACD state for reuse.
func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
	m.count = 0
	m.line = 0
	m.sig = 0
}
