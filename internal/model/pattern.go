package model

import (
	"encoding/json"
	"time"
)

// Direction is the trend bias of a pattern.
type Direction string

const (
	Up      Direction = "UP"
	Down    Direction = "DOWN"
	Neutral Direction = "NEUTRAL"
)

// PatternName identifies a candlestick pattern.
type PatternName string

const (
	Doji                PatternName = "Doji"
	Hammer              PatternName = "Hammer"
	ShootingStar        PatternName = "Shooting Star"
	BullishMarubozu     PatternName = "Bullish Marubozu"
	BearishMarubozu     PatternName = "Bearish Marubozu"
	HangingMan          PatternName = "Hanging Man"
	InvertedHammer      PatternName = "Inverted Hammer"
	BullishEngulfing    PatternName = "Bullish Engulfing"
	BearishEngulfing    PatternName = "Bearish Engulfing"
	PiercingLine        PatternName = "Piercing Line"
	DarkCloudCover      PatternName = "Dark Cloud Cover"
	MorningStar         PatternName = "Morning Star"
	EveningStar         PatternName = "Evening Star"
	ThreeWhiteSoldiers  PatternName = "Three White Soldiers"
	ThreeBlackCrows     PatternName = "Three Black Crows"
	RisingThreeMethods  PatternName = "Rising Three Methods"
	FallingThreeMethods PatternName = "Falling Three Methods"
)

var meanings = map[PatternName]string{
	Doji:                "Market Indecision",
	Hammer:              "Bullish Reversal",
	ShootingStar:        "Bearish Reversal",
	BullishMarubozu:     "Strong Buying Pressure",
	BearishMarubozu:     "Strong Selling Pressure",
	HangingMan:          "Bearish Reversal Warning",
	InvertedHammer:      "Bullish Reversal Warning",
	BullishEngulfing:    "Possible Uptrend Reversal",
	BearishEngulfing:    "Possible Downtrend Reversal",
	PiercingLine:        "Bullish Reversal",
	DarkCloudCover:      "Bearish Reversal",
	MorningStar:         "Bullish Reversal",
	EveningStar:         "Bearish Reversal",
	ThreeWhiteSoldiers:  "Strong Bullish Continuation",
	ThreeBlackCrows:     "Strong Bearish Continuation",
	RisingThreeMethods:  "Bullish Continuation",
	FallingThreeMethods: "Bearish Continuation",
}

// Meaning returns a short display description for the pattern.
func (n PatternName) Meaning() string {
	return meanings[n]
}

// PatternEvent is one matched pattern over the evidence bars.
// Strength is nil when no indicator reading was available for scoring.
type PatternEvent struct {
	Name      PatternName `json:"name"`
	Direction Direction   `json:"direction"`
	Strength  *int        `json:"strength,omitempty"`
	Evidence  []Bar       `json:"evidence"` // chronological, 1-3 bars
	TS        time.Time   `json:"ts"`       // timestamp of the newest evidence bar
}

// JSON returns the JSON-encoded event.
func (e *PatternEvent) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}
