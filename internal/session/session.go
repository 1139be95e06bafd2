// Package session drives the analytics core for one instrument. A Session
// owns the bar window, the indicator engine, the tick tracker and the
// report-once-per-bar dedup state, and must be used from one goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"candlewatch/internal/barwindow"
	"candlewatch/internal/indicator"
	"candlewatch/internal/logger"
	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
	"candlewatch/internal/momentum"
	"candlewatch/internal/pattern"
)

// Config describes one instrument session.
type Config struct {
	Symbol     string
	Window     barwindow.Config
	Indicators indicator.Config
	Momentum   momentum.Config
}

// Session turns batches of bars into Reports.
//
// The newest bar is kept pending: it feeds the indicator engine only once a
// later bar arrives, and the reading for it comes from Peek. A bar refreshed
// in place under the replace policy therefore never double-counts.
type Session struct {
	symbol  string
	window  *barwindow.Window
	engine  *indicator.Engine
	tracker *momentum.Tracker
	metrics *metrics.Metrics

	pending        *model.Bar
	lastReportedTS time.Time

	// tickSeq counts changes to the tick history; momentum is reported only
	// when it moved past reportedTickSeq.
	tickSeq         uint64
	reportedTickSeq uint64
}

// New creates a session. m may be nil.
func New(cfg Config, m *metrics.Metrics) (*Session, error) {
	if cfg.Symbol == "" {
		return nil, errors.New("session: symbol is required")
	}
	if cfg.Indicators == (indicator.Config{}) {
		cfg.Indicators = indicator.DefaultConfig()
	}
	if err := cfg.Indicators.Validate(); err != nil {
		return nil, fmt.Errorf("session %s: %w", cfg.Symbol, err)
	}
	return &Session{
		symbol:  cfg.Symbol,
		window:  barwindow.New(cfg.Window),
		engine:  indicator.NewEngine(cfg.Indicators),
		tracker: momentum.New(cfg.Momentum),
		metrics: m,
	}, nil
}

// Symbol returns the instrument this session tracks.
func (s *Session) Symbol() string { return s.symbol }

// Window exposes the bar window for read-only display use.
func (s *Session) Window() *barwindow.Window { return s.window }

// Tracker exposes the tick history for read-only display use.
func (s *Session) Tracker() *momentum.Tracker { return s.tracker }

// LastReportedTS is the newest bar timestamp whose patterns were reported.
func (s *Session) LastReportedTS() time.Time { return s.lastReportedTS }

// Latest returns the newest bar held, if any.
func (s *Session) Latest() (model.Bar, bool) { return s.window.Latest() }

// OnBar appends one bar. The bar's close is also recorded as a tick; a bar
// that replaced the newest one replaces the newest tick instead. A rejected
// bar leaves every piece of session state unchanged.
func (s *Session) OnBar(bar model.Bar) error {
	if bar.Close <= 0 {
		err := &model.InvalidPriceError{Price: bar.Close, TS: bar.TS}
		s.countRejected(err)
		return err
	}
	prev, hadPrev := s.window.Latest()
	if err := s.window.Append(bar); err != nil {
		s.countRejected(err)
		return err
	}

	replaced := hadPrev && bar.TS.Equal(prev.TS)
	if !replaced && s.pending != nil {
		start := time.Now()
		s.engine.Update(s.pending.Close)
		if s.metrics != nil {
			s.metrics.IndicatorDur.Observe(time.Since(start).Seconds())
		}
	}
	b := bar
	s.pending = &b

	if s.metrics != nil {
		if replaced {
			s.metrics.BarsReplaced.Inc()
		} else {
			s.metrics.BarsAppended.Inc()
		}
	}

	tick := model.Tick{TS: bar.TS, Price: bar.Close}
	if !replaced {
		return s.pushTick(tick)
	}
	if last, ok := s.tracker.Newest(); ok && last.TS.Equal(tick.TS) && last.Price == tick.Price {
		return nil
	}
	if err := s.tracker.ReplaceNewest(tick); err != nil {
		return err
	}
	s.tickSeq++
	return nil
}

// OnTick records a price observation that is not part of a bar. A
// non-positive price is rejected with an InvalidPriceError.
func (s *Session) OnTick(tick model.Tick) error {
	return s.pushTick(tick)
}

func (s *Session) pushTick(tick model.Tick) error {
	if err := s.tracker.Push(tick); err != nil {
		return err
	}
	s.tickSeq++
	return nil
}

// Reading returns indicator values for the newest bar.
func (s *Session) Reading() (indicator.Reading, bool) {
	if s.pending == nil {
		return indicator.Reading{}, false
	}
	return s.engine.Peek(s.pending.Close), true
}

// Evaluate classifies the newest bars and tick history without touching the
// dedup state.
func (s *Session) Evaluate() ([]model.PatternEvent, []model.MomentumEvent, error) {
	patterns := s.classify()
	moves, err := s.tracker.Evaluate()
	if err != nil {
		return patterns, nil, err
	}
	return patterns, moves, nil
}

func (s *Session) classify() []model.PatternEvent {
	r, ok := s.Reading()
	if !ok {
		return []model.PatternEvent{}
	}
	start := time.Now()
	patterns := pattern.Classify(s.window.Last(pattern.MaxLookback), &r)
	if s.metrics != nil {
		s.metrics.ClassifyDur.Observe(time.Since(start).Seconds())
	}
	return patterns
}

// Refresh ingests bars and produces the cycle's report. Rejected bars are
// logged and skipped. Patterns are reported once per newest-bar timestamp;
// later cycles on the same bar return Fresh=false with no patterns.
// Momentum is reported only when the tick history changed since the last
// Refresh. A momentum failure still returns the report's patterns alongside
// the error.
func (s *Session) Refresh(ctx context.Context, bars []model.Bar) (model.Report, error) {
	for _, b := range bars {
		if err := s.OnBar(b); err != nil {
			slog.Warn("bar rejected",
				append(logger.LogWithTrace(ctx),
					slog.String("symbol", s.symbol),
					slog.Time("bar_ts", b.TS),
					slog.String("error", err.Error()),
				)...)
		}
	}

	report := model.Report{
		Symbol:   s.symbol,
		TraceID:  logger.TraceID(ctx),
		Patterns: []model.PatternEvent{},
		Momentum: []model.MomentumEvent{},
	}
	latest, ok := s.window.Latest()
	if !ok {
		return report, nil
	}
	report.BarTS = latest.TS

	patterns := s.classify()

	var err error
	if s.tickSeq != s.reportedTickSeq {
		s.reportedTickSeq = s.tickSeq
		var moves []model.MomentumEvent
		if moves, err = s.tracker.Evaluate(); err == nil {
			report.Momentum = moves
		}
	}

	report.Fresh = !latest.TS.Equal(s.lastReportedTS)
	if report.Fresh && len(patterns) > 0 {
		report.Patterns = patterns
		s.lastReportedTS = latest.TS
	}
	if !report.Fresh && s.metrics != nil {
		s.metrics.StaleReports.Inc()
	}

	s.countEvents(report)
	if s.metrics != nil {
		s.metrics.BarLag.Set(time.Since(latest.TS).Seconds())
	}

	if err != nil {
		return report, fmt.Errorf("momentum %s: %w", s.symbol, err)
	}
	return report, nil
}

func (s *Session) countRejected(err error) {
	if s.metrics == nil {
		return
	}
	reason := "other"
	switch {
	case errors.Is(err, model.ErrMalformedBar):
		reason = "malformed"
	case errors.Is(err, model.ErrOutOfOrder):
		reason = "out_of_order"
	case errors.Is(err, model.ErrInvalidPrice):
		reason = "invalid_price"
	}
	s.metrics.BarsRejected.WithLabelValues(reason).Inc()
}

func (s *Session) countEvents(r model.Report) {
	if s.metrics == nil {
		return
	}
	for _, p := range r.Patterns {
		s.metrics.PatternsTotal.WithLabelValues(string(p.Name), string(p.Direction)).Inc()
	}
	for _, m := range r.Momentum {
		s.metrics.MomentumTotal.WithLabelValues(string(m.Category)).Inc()
	}
}
