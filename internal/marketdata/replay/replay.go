// Package replay feeds stored bar history through a session one bar at a
// time, at a configurable speed, as if the bars were arriving live.
package replay

import (
	"context"
	"fmt"
	"log"
	"time"

	"candlewatch/internal/logger"
	"candlewatch/internal/model"
	"candlewatch/internal/session"
)

// DefaultMaxGap caps the simulated wait between two bars.
const DefaultMaxGap = 5 * time.Second

// Options controls a replay run.
type Options struct {
	// From limits the replay to bars strictly after this time (zero = all).
	From time.Time
	// Speed is the playback rate: 1 = real time, 100 = 100x, 0 = as fast as possible.
	Speed float64
	// MaxGap caps each simulated wait. Zero means DefaultMaxGap.
	MaxGap time.Duration
}

// Stats summarises a finished replay.
type Stats struct {
	Bars     int
	Reports  int
	Patterns int
	Momentum int
	Errors   int
}

// Replayer reads stored bars and replays them through a session.
type Replayer struct {
	reader model.BarReader
}

// New creates a Replayer backed by reader.
func New(reader model.BarReader) *Replayer {
	return &Replayer{reader: reader}
}

// Run replays every stored bar for the session's symbol, calling emit with
// each non-empty report. Momentum failures on individual bars are counted
// and logged; the replay continues.
func (r *Replayer) Run(ctx context.Context, s *session.Session, opts Options, emit func(model.Report)) (Stats, error) {
	var st Stats
	symbol := s.Symbol()

	bars, err := r.reader.ReadBars(ctx, symbol, opts.From)
	if err != nil {
		return st, fmt.Errorf("replay read %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		log.Printf("[replay] no bars stored for %s", symbol)
		return st, nil
	}
	log.Printf("[replay] loaded %d bars for %s, speed=%.1fx", len(bars), symbol, opts.Speed)

	maxGap := opts.MaxGap
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	var prevTS time.Time
	for _, b := range bars {
		if err := ctx.Err(); err != nil {
			log.Printf("[replay] cancelled after %d bars", st.Bars)
			return st, err
		}

		if opts.Speed > 0 && !prevTS.IsZero() {
			if gap := b.TS.Sub(prevTS); gap > 0 {
				wait := time.Duration(float64(gap) / opts.Speed)
				if wait > maxGap {
					wait = maxGap
				}
				select {
				case <-ctx.Done():
					return st, ctx.Err()
				case <-time.After(wait):
				}
			}
		}
		prevTS = b.TS

		cycleCtx := logger.WithTraceID(ctx, logger.GenerateTraceID(symbol, b.TS))
		report, err := s.Refresh(cycleCtx, []model.Bar{b})
		st.Bars++
		if err != nil {
			st.Errors++
			log.Printf("[replay] %s at %s: %v", symbol, b.TS.Format(time.RFC3339), err)
		}
		if report.Empty() {
			continue
		}
		st.Reports++
		st.Patterns += len(report.Patterns)
		st.Momentum += len(report.Momentum)
		if emit != nil {
			emit(report)
		}
	}

	log.Printf("[replay] completed: %d bars, %d reports", st.Bars, st.Reports)
	return st, nil
}
