package model

import (
	"encoding/json"
	"time"
)

// Report is the outcome of one refresh cycle for one instrument: the pattern
// and momentum events the core produced, as handed to display and storage.
type Report struct {
	Symbol   string          `json:"symbol"`
	TraceID  string          `json:"trace_id,omitempty"`
	BarTS    time.Time       `json:"bar_ts"`
	Patterns []PatternEvent  `json:"patterns"`
	Momentum []MomentumEvent `json:"momentum"`

	// Fresh is false when the patterns were already reported for BarTS.
	Fresh bool `json:"fresh"`
}

// Empty reports whether the cycle produced no events at all.
func (r *Report) Empty() bool {
	return len(r.Patterns) == 0 && len(r.Momentum) == 0
}

// JSON returns the JSON-encoded report.
func (r *Report) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}
