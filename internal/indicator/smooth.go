package indicator

// smoother is an exponential smoother seeded with the simple mean of its
// first period inputs; afterwards value += alpha*(v-value). EMA and SMMA
// differ only in alpha. O(1) per update, no window storage.
type smoother struct {
	period int
	alpha  float64
	count  int
	sum    float64
	value  float64
}

func (s *smoother) Update(v float64) {
	s.count++
	if s.count <= s.period {
		s.sum += v
		if s.count == s.period {
			s.value = s.sum / float64(s.period)
		}
		return
	}
	s.value += s.alpha * (v - s.value)
}

func (s *smoother) Value() float64 { return s.value }
func (s *smoother) Ready() bool    { return s.count >= s.period }

// Peek returns the value Update(v) would produce. Before the seed completes
// it returns 0.
func (s *smoother) Peek(v float64) float64 {
	switch {
	case s.count+1 < s.period:
		return 0
	case s.count+1 == s.period:
		return (s.sum + v) / float64(s.period)
	}
	return s.value + s.alpha*(v-s.value)
}

// Reset clears accumulated state, keeping period and alpha.
func (s *smoother) Reset() {
	s.count, s.sum, s.value = 0, 0, 0
}

// EMA is the exponential moving average, alpha = 2/(N+1).
type EMA struct{ smoother }

// NewEMA creates an EMA over period values.
func NewEMA(period int) *EMA {
	return &EMA{smoother{period: period, alpha: 2 / float64(period+1)}}
}

func (e *EMA) Name() string { return "EMA" }

// SMMA is Wilder's smoothed moving average, alpha = 1/N.
type SMMA struct{ smoother }

// NewSMMA creates an SMMA over period values.
func NewSMMA(period int) *SMMA {
	return &SMMA{smoother{period: period, alpha: 1 / float64(period)}}
}

func (s *SMMA) Name() string { return "SMMA" }
