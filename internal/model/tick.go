package model

import "time"

// Tick is a single timestamped price observation, coarser than a full bar.
type Tick struct {
	TS    time.Time `json:"ts"`
	Price float64   `json:"price"`
}
