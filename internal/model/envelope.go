package model

import "encoding/json"

// EventType tags an Envelope's payload.
type EventType string

const (
	EventPattern  EventType = "pattern"
	EventMomentum EventType = "momentum"
)

// Envelope is the wire form of a single event for streams, Pub/Sub and
// WebSocket clients.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    EventType       `json:"type"`
	Symbol  string          `json:"symbol"`
	TraceID string          `json:"trace_id,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// JSON returns the JSON-encoded envelope.
func (e *Envelope) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}

// Envelopes flattens a report into one envelope per event: patterns first,
// then momentum, each in report order. IDs are left for the caller.
func Envelopes(r Report) []Envelope {
	out := make([]Envelope, 0, len(r.Patterns)+len(r.Momentum))
	for i := range r.Patterns {
		out = append(out, Envelope{
			Type:    EventPattern,
			Symbol:  r.Symbol,
			TraceID: r.TraceID,
			Data:    r.Patterns[i].JSON(),
		})
	}
	for i := range r.Momentum {
		out = append(out, Envelope{
			Type:    EventMomentum,
			Symbol:  r.Symbol,
			TraceID: r.TraceID,
			Data:    r.Momentum[i].JSON(),
		})
	}
	return out
}
