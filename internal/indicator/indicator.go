// Package indicator computes momentum indicators over a close-price series.
//
// Every indicator is streaming: Update feeds one value in O(1) and Peek
// previews the next value without mutating state. Engine combines RSI and
// MACD into one aligned pass so batch and incremental callers see identical
// numbers.
package indicator

// Indicator is the interface for all streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "EMA", "RSI").
	Name() string

	// Update feeds the next value of the series.
	Update(v float64)

	// Value returns the current value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Peek computes what Value() would be if v were fed next,
	// WITHOUT mutating internal state.
	Peek(v float64) float64
}

// Point is one element of an indicator series. Valid is false during warm-up;
// V is then meaningless and must not be read as zero.
type Point struct {
	V     float64 `json:"v"`
	Valid bool    `json:"valid"`
}

func defined(v float64) Point { return Point{V: v, Valid: true} }

var (
	_ Indicator = (*EMA)(nil)
	_ Indicator = (*SMMA)(nil)
	_ Indicator = (*RSI)(nil)
	_ Indicator = (*MACD)(nil)
)
