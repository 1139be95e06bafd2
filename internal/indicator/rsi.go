package indicator

// RSI calculates the Relative Strength Index using Wilder's smoothing: the
// average gain and average loss are each an SMMA over the bar-to-bar deltas.
// When the average loss is exactly zero the RSI is 100.
// Update is O(1) per value.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   *SMMA
	avgLoss   *SMMA
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period:  period,
		avgGain: NewSMMA(period),
		avgLoss: NewSMMA(period),
	}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(v float64) {
	r.count++

	if r.count == 1 {
		// First value: record price, no delta yet
		r.prevClose = v
		return
	}

	gain, loss := split(v - r.prevClose)
	r.prevClose = v
	r.avgGain.Update(gain)
	r.avgLoss.Update(loss)

	if r.avgGain.Ready() {
		r.current = rsiFrom(r.avgGain.Value(), r.avgLoss.Value())
	}
}

func (r *RSI) Value() float64 { return r.current }

// Ready is true once period deltas (period+1 values) have been seen.
func (r *RSI) Ready() bool { return r.count > r.period }

// Peek computes what RSI would be with an additional value without mutating state.
func (r *RSI) Peek(v float64) float64 {
	if r.count == 0 || r.count+1 <= r.period {
		return r.current
	}
	gain, loss := split(v - r.prevClose)
	return rsiFrom(r.avgGain.Peek(gain), r.avgLoss.Peek(loss))
}

// Reset clears the RSI state for reuse.
func (r *RSI) Reset() {
	r.count = 0
	r.prevClose = 0
	r.current = 0
	r.avgGain.Reset()
	r.avgLoss.Reset()
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
