package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"candlewatch/internal/barwindow"
	"candlewatch/internal/logger"
	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
	"candlewatch/internal/session"
)

// Job runs one refresh cycle: pull bars newer than the cursor from the
// source, feed them through the session and publish the report.
type Job struct {
	session *session.Session
	source  model.BarReader
	out     chan<- model.Report
	health  *metrics.HealthStatus
	metrics *metrics.Metrics

	mu     sync.Mutex
	cursor time.Time
}

// NewJob wires a refresh job. health and m may be nil.
func NewJob(s *session.Session, src model.BarReader, out chan<- model.Report, health *metrics.HealthStatus, m *metrics.Metrics) *Job {
	return &Job{
		session: s,
		source:  src,
		out:     out,
		health:  health,
		metrics: m,
	}
}

// Cursor returns the timestamp the next cycle reads after.
func (j *Job) Cursor() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor
}

// SetCursor makes the next cycle read only bars after ts.
func (j *Job) SetCursor(ts time.Time) {
	j.mu.Lock()
	j.cursor = ts
	j.mu.Unlock()
}

// RunOnce executes a single cycle. A non-empty report is sent to the output
// even when the cycle also returns an error.
func (j *Job) RunOnce(ctx context.Context) (model.Report, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := time.Now()
	symbol := j.session.Symbol()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(symbol, start))

	bars, err := j.source.ReadBars(ctx, symbol, j.cursor)
	if err != nil {
		err = fmt.Errorf("read bars %s: %w", symbol, err)
		j.finish(ctx, start, model.Report{Symbol: symbol}, err)
		return model.Report{}, err
	}
	j.advance(bars)

	report, err := j.session.Refresh(ctx, bars)
	j.finish(ctx, start, report, err)

	if !report.Empty() {
		select {
		case j.out <- report:
		case <-ctx.Done():
			return report, ctx.Err()
		}
	}
	return report, err
}

// advance moves the cursor past the bars just read. Under the replace
// policy the newest bar may still be forming, so the cursor stops before it
// and the next cycle reads it again.
func (j *Job) advance(bars []model.Bar) {
	n := len(bars)
	switch {
	case n == 0:
	case j.session.Window().Policy() != barwindow.ReplaceDuplicate:
		j.cursor = bars[n-1].TS
	case n > 1:
		j.cursor = bars[n-2].TS
	}
}

func (j *Job) finish(ctx context.Context, start time.Time, r model.Report, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case r.Empty():
		result = "empty"
	}

	if j.metrics != nil {
		j.metrics.CyclesTotal.WithLabelValues(result).Inc()
		j.metrics.CycleDur.Observe(time.Since(start).Seconds())
	}
	if j.health != nil {
		j.health.RecordCycle(r.BarTS, err)
	}

	attrs := append(logger.LogWithTrace(ctx),
		slog.String("symbol", r.Symbol),
		slog.String("result", result),
		slog.Int("patterns", len(r.Patterns)),
		slog.Int("momentum", len(r.Momentum)),
		slog.Duration("took", time.Since(start)),
	)
	if err != nil {
		slog.Error("refresh cycle failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	slog.Debug("refresh cycle", attrs...)
}
