// Package momentum keeps a bounded history of price ticks and reports
// percentage moves of the newest tick against the ticks just before it.
// A Tracker has exactly one writer and no internal locking.
package momentum

import (
	"math"

	"candlewatch/internal/model"
	"candlewatch/internal/ringbuf"
)

// Defaults for Config zero values.
const (
	DefaultCapacity = 30
	DefaultLookback = 5
)

// Bucket thresholds in percent. Lower bounds are inclusive.
const (
	surgePct = 1.0
	risePct  = 0.5
)

// Config sizes the tick history and the comparison lookback.
type Config struct {
	Capacity int `yaml:"capacity"`
	Lookback int `yaml:"lookback"`
}

// Tracker is a FIFO of the last Capacity ticks.
type Tracker struct {
	ring     *ringbuf.Ring[model.Tick]
	lookback int
}

// New creates a tracker; zero or negative fields take their defaults.
func New(cfg Config) *Tracker {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	return &Tracker{
		ring:     ringbuf.New[model.Tick](cfg.Capacity),
		lookback: cfg.Lookback,
	}
}

// Push appends tick, evicting the oldest once the history is full. A
// non-positive price is rejected with an InvalidPriceError and the history
// is left unchanged.
func (t *Tracker) Push(tick model.Tick) error {
	if err := checkPrice(tick); err != nil {
		return err
	}
	t.ring.Push(tick)
	return nil
}

// ReplaceNewest overwrites the newest tick, for a still-forming bar whose
// close moved. With an empty history it behaves like Push.
func (t *Tracker) ReplaceNewest(tick model.Tick) error {
	if err := checkPrice(tick); err != nil {
		return err
	}
	if !t.ring.ReplaceNewest(tick) {
		t.ring.Push(tick)
	}
	return nil
}

// Newest returns the most recent tick.
func (t *Tracker) Newest() (model.Tick, bool) {
	return t.ring.Newest()
}

func checkPrice(tick model.Tick) error {
	if !(tick.Price > 0) || math.IsInf(tick.Price, 0) {
		return &model.InvalidPriceError{Price: tick.Price, TS: tick.TS}
	}
	return nil
}

// Evaluate compares the newest tick with each of the min(Lookback, Size-1)
// ticks before it, nearest first, and returns one event per pair whose change
// falls in a bucket. A non-positive older price fails the whole call with an
// InvalidPriceError.
func (t *Tracker) Evaluate() ([]model.MomentumEvent, error) {
	n := t.ring.Len()
	pairs := min(t.lookback, n-1)
	if pairs <= 0 {
		return []model.MomentumEvent{}, nil
	}

	newest, _ := t.ring.Newest()
	events := make([]model.MomentumEvent, 0, pairs)
	for k := 1; k <= pairs; k++ {
		old, _ := t.ring.At(n - 1 - k)
		pct, err := PctChange(old, newest)
		if err != nil {
			return nil, err
		}
		cat, ok := Categorize(pct)
		if !ok {
			continue
		}
		events = append(events, model.MomentumEvent{
			From:      old.TS,
			To:        newest.TS,
			FromPrice: old.Price,
			ToPrice:   newest.Price,
			PctChange: pct,
			Category:  cat,
		})
	}
	return events, nil
}

// PctChange returns (to - from) * 100 / from.
func PctChange(from, to model.Tick) (float64, error) {
	if from.Price <= 0 {
		return 0, &model.InvalidPriceError{Price: from.Price, TS: from.TS}
	}
	return (to.Price - from.Price) * 100 / from.Price, nil
}

// Categorize returns the highest-magnitude bucket pct falls into.
// ok is false when |pct| is below the smallest threshold.
func Categorize(pct float64) (model.MomentumCategory, bool) {
	switch {
	case pct >= surgePct:
		return model.StrongSurge, true
	case pct >= risePct:
		return model.MildRise, true
	case pct <= -surgePct:
		return model.SharpDrop, true
	case pct <= -risePct:
		return model.MildDrop, true
	}
	return "", false
}

// Ticks returns the held ticks, oldest first.
func (t *Tracker) Ticks() []model.Tick {
	return t.ring.Slice()
}

// Prices returns the held prices, oldest first.
func (t *Tracker) Prices() []float64 {
	ticks := t.ring.Slice()
	out := make([]float64, len(ticks))
	for i, tk := range ticks {
		out[i] = tk.Price
	}
	return out
}

// Size returns the number of held ticks.
func (t *Tracker) Size() int { return t.ring.Len() }

// Cap returns the history capacity.
func (t *Tracker) Cap() int { return t.ring.Cap() }

// Lookback returns the configured comparison count.
func (t *Tracker) Lookback() int { return t.lookback }
