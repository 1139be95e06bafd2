// Package pattern classifies the newest one to three bars of a window into
// named candlestick patterns. Classification is a pure function of its input:
// no state survives between calls.
package pattern

import (
	"iter"

	"candlewatch/internal/barwindow"
	"candlewatch/internal/indicator"
	"candlewatch/internal/model"
)

// Patterns lazily yields every pattern matched by the newest bars.
//
// Each rule runs only when enough bars exist for its lookback, so a single
// bar can still produce single-bar patterns. Rules are independent and the
// full matched set is yielded in table order. reading, when non-nil and past
// warm-up, attaches a strength score to every event.
func Patterns(bars []model.Bar, reading *indicator.Reading) iter.Seq[model.PatternEvent] {
	return func(yield func(model.PatternEvent) bool) {
		n := len(bars)
		if n == 0 {
			return
		}
		last := bars[n-1]
		hasRange := last.Range() > 0

		for _, r := range rules {
			if r.lookback > n || (r.ratio && !hasRange) {
				continue
			}
			evidence := bars[n-r.lookback:]
			if !r.match(evidence) {
				continue
			}

			ev := model.PatternEvent{
				Name:      r.name,
				Direction: r.direction,
				Evidence:  append([]model.Bar(nil), evidence...),
				TS:        last.TS,
			}
			if s, ok := Strength(r.direction, reading); ok {
				ev.Strength = &s
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Classify collects Patterns into a slice. No match returns an empty slice.
func Classify(bars []model.Bar, reading *indicator.Reading) []model.PatternEvent {
	out := make([]model.PatternEvent, 0, 4)
	for ev := range Patterns(bars, reading) {
		out = append(out, ev)
	}
	return out
}

// ClassifyWindow classifies the newest bars of w, scoring with the newest
// reading of series when one is given.
func ClassifyWindow(w *barwindow.Window, series *indicator.Series) []model.PatternEvent {
	var reading *indicator.Reading
	if r, ok := series.Last(); ok {
		reading = &r
	}
	return Classify(w.Last(MaxLookback), reading)
}

// Strength scores a direction against a reading: base 50, +20 when RSI sits
// on the direction's side of 50, +20 when MACD sits on the direction's side
// of its signal line, clamped to [0,100]. ok is false when the reading is
// missing or still warming up.
func Strength(dir model.Direction, r *indicator.Reading) (score int, ok bool) {
	if r == nil || !r.Complete() {
		return 0, false
	}

	score = 50
	switch dir {
	case model.Up:
		if r.RSI.V > 50 {
			score += 20
		}
		if r.MACD.V > r.Signal.V {
			score += 20
		}
	case model.Down:
		if r.RSI.V < 50 {
			score += 20
		}
		if r.MACD.V < r.Signal.V {
			score += 20
		}
	}
	return min(max(score, 0), 100), true
}
