package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These decouple the refresh driver from concrete stores (SQLite, Redis).

// BarReader reads stored bar history for replay and periodic refresh.
type BarReader interface {
	// ReadBars returns bars for symbol with TS strictly after `after`,
	// ordered by TS ascending.
	ReadBars(ctx context.Context, symbol string, after time.Time) ([]Bar, error)

	// Close releases underlying resources.
	Close() error
}

// BarWriter persists bars supplied by an external fetcher.
type BarWriter interface {
	WriteBars(ctx context.Context, symbol string, bars []Bar) error

	// Close releases underlying resources.
	Close() error
}

// ReportSink receives the result of each refresh cycle.
// Implementations must not retain or mutate the report's slices.
type ReportSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Handle delivers one report. Errors are logged by the caller, never retried.
	Handle(ctx context.Context, r Report) error
}
