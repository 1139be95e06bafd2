package model

import (
	"encoding/json"
	"time"
)

// MomentumCategory is the magnitude bucket of a percentage change.
type MomentumCategory string

const (
	StrongSurge MomentumCategory = "Strong Surge"
	MildRise    MomentumCategory = "Mild Rise"
	SharpDrop   MomentumCategory = "Sharp Drop"
	MildDrop    MomentumCategory = "Mild Drop"
)

// MomentumEvent reports the change from an older tick to the newest one.
type MomentumEvent struct {
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	FromPrice float64          `json:"from_price"`
	ToPrice   float64          `json:"to_price"`
	PctChange float64          `json:"pct_change"`
	Category  MomentumCategory `json:"category"`
}

// JSON returns the JSON-encoded event.
func (e *MomentumEvent) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}
