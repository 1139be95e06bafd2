package model

import (
	"encoding/json"
	"math"
	"time"
)

// Bar is one OHLC observation for a fixed interval of a single instrument.
// Prices are float64; the core never rounds or clamps them.
type Bar struct {
	TS     time.Time `json:"ts"` // interval start (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume *float64  `json:"volume,omitempty"` // nil when the source has no volume
}

// NewBar builds a bar without volume.
func NewBar(ts time.Time, open, high, low, close float64) Bar {
	return Bar{TS: ts, Open: open, High: high, Low: low, Close: close}
}

// WithVolume returns a copy of b carrying volume v.
func (b Bar) WithVolume(v float64) Bar {
	b.Volume = &v
	return b
}

// Validate checks the OHLC shape invariants. It never adjusts the bar.
func (b Bar) Validate() error {
	for _, p := range [4]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return &MalformedBarError{Bar: b, Reason: "non-finite price"}
		}
	}
	switch {
	case b.High < b.Low:
		return &MalformedBarError{Bar: b, Reason: "high below low"}
	case b.Low > math.Min(b.Open, b.Close):
		return &MalformedBarError{Bar: b, Reason: "low above body"}
	case b.High < math.Max(b.Open, b.Close):
		return &MalformedBarError{Bar: b, Reason: "high below body"}
	}
	if b.Volume != nil {
		v := *b.Volume
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return &MalformedBarError{Bar: b, Reason: "invalid volume"}
		}
	}
	return nil
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports whether the bar closed below its open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Body is |close - open|.
func (b Bar) Body() float64 { return math.Abs(b.Close - b.Open) }

// Range is high - low.
func (b Bar) Range() float64 { return b.High - b.Low }

// UpperShadow is high - max(open, close).
func (b Bar) UpperShadow() float64 { return b.High - math.Max(b.Open, b.Close) }

// LowerShadow is min(open, close) - low.
func (b Bar) LowerShadow() float64 { return math.Min(b.Open, b.Close) - b.Low }

// Midpoint is the middle of the real body.
func (b Bar) Midpoint() float64 { return (b.Open + b.Close) / 2 }

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
