// Package barwindow holds the ordered, optionally capacity-bounded sequence of
// OHLC bars for one instrument. A Window has exactly one writer and no
// internal locking.
package barwindow

import (
	"candlewatch/internal/model"
	"candlewatch/internal/ringbuf"
)

// DuplicatePolicy decides what Append does with a bar whose timestamp equals
// the newest bar's timestamp.
type DuplicatePolicy int

const (
	// RejectDuplicate fails the append with an OutOfOrderError.
	RejectDuplicate DuplicatePolicy = iota
	// ReplaceDuplicate overwrites the newest bar (refresh of a still-forming bar).
	ReplaceDuplicate
)

func (p DuplicatePolicy) String() string {
	switch p {
	case RejectDuplicate:
		return "reject"
	case ReplaceDuplicate:
		return "replace"
	default:
		return "unknown"
	}
}

// ParseDuplicatePolicy maps "reject" / "replace" to a policy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, bool) {
	switch s {
	case "", "reject":
		return RejectDuplicate, true
	case "replace":
		return ReplaceDuplicate, true
	}
	return RejectDuplicate, false
}

// Config configures a Window. Capacity <= 0 means unbounded.
type Config struct {
	Capacity    int
	OnDuplicate DuplicatePolicy
}

// Window is an append-only bar buffer that evicts the oldest bar once
// Capacity is exceeded.
type Window struct {
	ring   *ringbuf.Ring[model.Bar]
	policy DuplicatePolicy
}

// New creates an empty window.
func New(cfg Config) *Window {
	return &Window{
		ring:   ringbuf.New[model.Bar](cfg.Capacity),
		policy: cfg.OnDuplicate,
	}
}

// Append adds bar as the newest entry. A malformed or non-advancing bar is
// rejected and leaves the window unchanged. Under ReplaceDuplicate a bar at
// the newest timestamp replaces it instead.
func (w *Window) Append(bar model.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	if last, ok := w.ring.Newest(); ok {
		switch {
		case bar.TS.Equal(last.TS) && w.policy == ReplaceDuplicate:
			w.ring.ReplaceNewest(bar)
			return nil
		case !bar.TS.After(last.TS):
			return &model.OutOfOrderError{Last: last.TS, Got: bar.TS}
		}
	}

	w.ring.Push(bar)
	return nil
}

// Last returns the newest n bars in chronological order. It returns fewer
// when the window holds fewer and an empty slice when it is empty.
func (w *Window) Last(n int) []model.Bar {
	return w.ring.LastN(n)
}

// Latest returns the newest bar.
func (w *Window) Latest() (model.Bar, bool) {
	return w.ring.Newest()
}

// Bars returns a copy of every bar, oldest first.
func (w *Window) Bars() []model.Bar {
	return w.ring.Slice()
}

// Closes returns the close prices, oldest first.
func (w *Window) Closes() []float64 {
	closes := make([]float64, w.ring.Len())
	for i := range closes {
		b, _ := w.ring.At(i)
		closes[i] = b.Close
	}
	return closes
}

// Size returns the current bar count.
func (w *Window) Size() int { return w.ring.Len() }

// Cap returns the configured capacity (0 = unbounded).
func (w *Window) Cap() int { return w.ring.Cap() }

// Evicted returns how many bars were dropped by the capacity policy.
func (w *Window) Evicted() uint64 { return w.ring.Evicted() }

// Policy returns the duplicate-timestamp policy.
func (w *Window) Policy() DuplicatePolicy { return w.policy }
