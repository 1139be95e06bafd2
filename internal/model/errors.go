package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrMalformedBar = errors.New("malformed bar")
	ErrOutOfOrder   = errors.New("bar out of order")
	ErrInvalidPrice = errors.New("invalid price")
)

// MalformedBarError is returned when a bar violates the low/high invariant.
type MalformedBarError struct {
	Bar    Bar
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("malformed bar at %s: %s (o=%g h=%g l=%g c=%g)",
		e.Bar.TS.Format(time.RFC3339), e.Reason, e.Bar.Open, e.Bar.High, e.Bar.Low, e.Bar.Close)
}

func (e *MalformedBarError) Is(target error) bool { return target == ErrMalformedBar }

// OutOfOrderError is returned when an appended bar does not advance the window.
type OutOfOrderError struct {
	Last time.Time
	Got  time.Time
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("bar out of order: got %s, last %s",
		e.Got.Format(time.RFC3339Nano), e.Last.Format(time.RFC3339Nano))
}

func (e *OutOfOrderError) Is(target error) bool { return target == ErrOutOfOrder }

// InvalidPriceError is returned when a non-positive price would be used as a
// percentage-change denominator.
type InvalidPriceError struct {
	Price float64
	TS    time.Time
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %g at %s", e.Price, e.TS.Format(time.RFC3339Nano))
}

func (e *InvalidPriceError) Is(target error) bool { return target == ErrInvalidPrice }
