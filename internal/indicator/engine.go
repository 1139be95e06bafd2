package indicator

import "fmt"

// Config holds indicator periods.
type Config struct {
	RSIPeriod  int `yaml:"rsi_period"`
	MACDFast   int `yaml:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow"`
	MACDSignal int `yaml:"macd_signal"`
}

// DefaultConfig returns RSI(14) and MACD(12, 26, 9).
func DefaultConfig() Config {
	return Config{RSIPeriod: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9}
}

// Validate checks that all periods are usable.
func (c Config) Validate() error {
	switch {
	case c.RSIPeriod < 1:
		return fmt.Errorf("rsi period must be positive, got %d", c.RSIPeriod)
	case c.MACDFast < 1 || c.MACDSlow < 1 || c.MACDSignal < 1:
		return fmt.Errorf("macd spans must be positive, got %d/%d/%d", c.MACDFast, c.MACDSlow, c.MACDSignal)
	case c.MACDFast >= c.MACDSlow:
		return fmt.Errorf("macd fast span %d must be shorter than slow span %d", c.MACDFast, c.MACDSlow)
	}
	return nil
}

// Reading is the indicator state at a single bar.
type Reading struct {
	RSI    Point `json:"rsi"`
	MACD   Point `json:"macd"`
	Signal Point `json:"signal"`
}

// Complete reports whether every field is past its warm-up.
func (r Reading) Complete() bool {
	return r.RSI.Valid && r.MACD.Valid && r.Signal.Valid
}

// Series holds RSI, MACD and signal values aligned index-for-index with the
// close prices they were computed from.
type Series struct {
	RSI    []Point `json:"rsi"`
	MACD   []Point `json:"macd"`
	Signal []Point `json:"signal"`
}

// Len returns the number of aligned points.
func (s *Series) Len() int { return len(s.RSI) }

// At returns the reading at index i.
func (s *Series) At(i int) Reading {
	return Reading{RSI: s.RSI[i], MACD: s.MACD[i], Signal: s.Signal[i]}
}

// Last returns the reading at the newest index.
func (s *Series) Last() (Reading, bool) {
	if s == nil || s.Len() == 0 {
		return Reading{}, false
	}
	return s.At(s.Len() - 1), true
}

// Engine computes RSI and MACD over one close-price stream.
// Single-goroutine use only; no locks.
type Engine struct {
	cfg  Config
	rsi  *RSI
	macd *MACD
}

// NewEngine creates an engine. cfg is assumed valid (see Config.Validate).
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:  cfg,
		rsi:  NewRSI(cfg.RSIPeriod),
		macd: NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
	}
}

// Config returns the engine's periods.
func (e *Engine) Config() Config { return e.cfg }

// Update feeds the next close and returns the reading at that close.
func (e *Engine) Update(close float64) Reading {
	e.rsi.Update(close)
	e.macd.Update(close)
	return e.Current()
}

// Current returns the reading at the last fed close.
func (e *Engine) Current() Reading {
	var r Reading
	if e.rsi.Ready() {
		r.RSI = defined(e.rsi.Value())
	}
	if e.macd.Ready() {
		r.MACD = defined(e.macd.Value())
		r.Signal = defined(e.macd.Signal())
	}
	return r
}

// Peek returns the reading that feeding close would produce, without
// mutating state. Used for still-forming bars.
func (e *Engine) Peek(close float64) Reading {
	var r Reading
	if e.rsi.count+1 > e.rsi.period {
		r.RSI = defined(e.rsi.Peek(close))
	}
	if e.macd.count+1 > e.macd.warmup {
		line, sig := e.macd.PeekBoth(close)
		r.MACD = defined(line)
		r.Signal = defined(sig)
	}
	return r
}

// Reset clears all state.
func (e *Engine) Reset() {
	e.rsi.Reset()
	e.macd.Reset()
}

// Compute runs a fresh engine with the same periods over closes in a single
// pass. The receiver's streaming state is untouched.
func (e *Engine) Compute(closes []float64) Series {
	return Compute(e.cfg, closes)
}

// Compute returns the aligned RSI/MACD/signal series for closes.
func Compute(cfg Config, closes []float64) Series {
	s := Series{
		RSI:    make([]Point, len(closes)),
		MACD:   make([]Point, len(closes)),
		Signal: make([]Point, len(closes)),
	}
	eng := NewEngine(cfg)
	for i, c := range closes {
		r := eng.Update(c)
		s.RSI[i] = r.RSI
		s.MACD[i] = r.MACD
		s.Signal[i] = r.Signal
	}
	return s
}
