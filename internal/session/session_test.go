package session

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"candlewatch/internal/barwindow"
	"candlewatch/internal/indicator"
	"candlewatch/internal/logger"
	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
)

var t0 = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

func bar(min int, o, h, l, c float64) model.Bar {
	return model.NewBar(t0.Add(time.Duration(min)*time.Minute), o, h, l, c)
}

func flat(min int, p float64) model.Bar { return bar(min, p, p, p, p) }

func newSession(t *testing.T, cfg Config) (*Session, *metrics.Metrics) {
	t.Helper()
	if cfg.Symbol == "" {
		cfg.Symbol = "AAPL"
	}
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	s, err := New(cfg, m)
	if err != nil {
		t.Fatal(err)
	}
	return s, m
}

func hasPattern(evs []model.PatternEvent, name model.PatternName) bool {
	for _, e := range evs {
		if e.Name == name {
			return true
		}
	}
	return false
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("expected error for empty symbol")
	}
	bad := Config{Symbol: "AAPL", Indicators: indicator.Config{RSIPeriod: 14, MACDFast: 26, MACDSlow: 12, MACDSignal: 9}}
	if _, err := New(bad, nil); err == nil {
		t.Error("expected error for fast >= slow")
	}
	s, err := New(Config{Symbol: "AAPL"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.engine.Config() != indicator.DefaultConfig() {
		t.Errorf("expected default indicator periods, got %+v", s.engine.Config())
	}
}

func TestRefresh_ReportsPatternOncePerBar(t *testing.T) {
	s, m := newSession(t, Config{})
	ctx := logger.WithTraceID(context.Background(), "AAPL-1")

	r, err := s.Refresh(ctx, []model.Bar{
		bar(0, 10, 12, 9, 11),
		bar(1, 11, 11.5, 8, 9),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Fresh || !hasPattern(r.Patterns, model.BearishEngulfing) {
		t.Fatalf("expected fresh Bearish Engulfing, got fresh=%v %+v", r.Fresh, r.Patterns)
	}
	if r.TraceID != "AAPL-1" || r.Symbol != "AAPL" || !r.BarTS.Equal(t0.Add(time.Minute)) {
		t.Errorf("unexpected report header: %+v", r)
	}
	if !s.LastReportedTS().Equal(t0.Add(time.Minute)) {
		t.Errorf("lastReportedTS not advanced: %v", s.LastReportedTS())
	}
	for _, e := range r.Patterns {
		if e.Strength != nil {
			t.Errorf("%s: strength must be absent before indicator warm-up", e.Name)
		}
	}

	// Same newest bar again: nothing new to report.
	r, err = s.Refresh(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Fresh || len(r.Patterns) != 0 {
		t.Errorf("expected stale report with no patterns, got fresh=%v %+v", r.Fresh, r.Patterns)
	}
	if got := testutil.ToFloat64(m.StaleReports); got != 1 {
		t.Errorf("expected 1 stale report, got %v", got)
	}
	if got := testutil.ToFloat64(m.PatternsTotal.WithLabelValues(string(model.BearishEngulfing), string(model.Down))); got != 1 {
		t.Errorf("expected Bearish Engulfing counted once, got %v", got)
	}
}

func TestRefresh_NoPatternsKeepsDedupOpen(t *testing.T) {
	s, _ := newSession(t, Config{})

	r, err := s.Refresh(context.Background(), []model.Bar{flat(0, 100)})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Patterns) != 0 || !r.Fresh {
		t.Fatalf("expected fresh empty report, got %+v", r)
	}
	if !s.LastReportedTS().IsZero() {
		t.Errorf("lastReportedTS must only advance when patterns are reported, got %v", s.LastReportedTS())
	}
}

func TestRefresh_SkipsRejectedBars(t *testing.T) {
	s, m := newSession(t, Config{})

	_, err := s.Refresh(context.Background(), []model.Bar{
		flat(5, 100),
		flat(4, 100),              // out of order
		bar(6, 100, 99, 101, 100), // high < low
		flat(7, 100),
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Window().Size() != 2 {
		t.Errorf("expected 2 accepted bars, got %d", s.Window().Size())
	}
	if s.Tracker().Size() != 2 {
		t.Errorf("rejected bars must not reach the tick history, got %d ticks", s.Tracker().Size())
	}
	if got := testutil.ToFloat64(m.BarsRejected.WithLabelValues("out_of_order")); got != 1 {
		t.Errorf("expected 1 out_of_order rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.BarsRejected.WithLabelValues("malformed")); got != 1 {
		t.Errorf("expected 1 malformed rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.BarsAppended); got != 2 {
		t.Errorf("expected 2 appended, got %v", got)
	}
}

func TestRefresh_Momentum(t *testing.T) {
	s, m := newSession(t, Config{})

	r, err := s.Refresh(context.Background(), []model.Bar{flat(0, 100), flat(1, 102)})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Momentum) != 1 || r.Momentum[0].Category != model.StrongSurge {
		t.Fatalf("expected one Strong Surge, got %+v", r.Momentum)
	}
	if got := testutil.ToFloat64(m.MomentumTotal.WithLabelValues(string(model.StrongSurge))); got != 1 {
		t.Errorf("expected momentum counted, got %v", got)
	}
}

func TestRefresh_NonPositiveCloseRejected(t *testing.T) {
	s, m := newSession(t, Config{})

	r, err := s.Refresh(context.Background(), []model.Bar{flat(0, 0), flat(1, 101)})
	if err != nil {
		t.Fatal(err)
	}
	if s.Window().Size() != 1 || s.Tracker().Size() != 1 {
		t.Errorf("zero-close bar must not reach the window or ticks: window=%d ticks=%d",
			s.Window().Size(), s.Tracker().Size())
	}
	if r.Symbol != "AAPL" || !r.BarTS.Equal(t0.Add(time.Minute)) || len(r.Momentum) != 0 {
		t.Errorf("unexpected report: %+v", r)
	}
	if got := testutil.ToFloat64(m.BarsRejected.WithLabelValues("invalid_price")); got != 1 {
		t.Errorf("expected 1 invalid_price rejection, got %v", got)
	}

	err = s.OnTick(model.Tick{TS: t0.Add(2 * time.Minute), Price: -1})
	if !errors.Is(err, model.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice from OnTick, got %v", err)
	}
	if s.Tracker().Size() != 1 {
		t.Errorf("rejected tick changed history size to %d", s.Tracker().Size())
	}
}

func TestRefresh_IdleCyclesDoNotRepeatMomentum(t *testing.T) {
	s, _ := newSession(t, Config{})
	ctx := context.Background()

	r, err := s.Refresh(ctx, []model.Bar{flat(0, 100), flat(1, 102)})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Momentum) != 1 {
		t.Fatalf("expected one move on the first cycle, got %+v", r.Momentum)
	}

	for i := 0; i < 3; i++ {
		r, err = s.Refresh(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !r.Empty() {
			t.Fatalf("idle cycle %d reported again: %+v", i, r)
		}
	}

	// A new tick opens momentum reporting again.
	if err := s.OnTick(model.Tick{TS: t0.Add(90 * time.Second), Price: 100}); err != nil {
		t.Fatal(err)
	}
	r, err = s.Refresh(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Momentum) == 0 {
		t.Error("expected momentum after a new tick")
	}
}

func TestRefresh_EmptySession(t *testing.T) {
	s, _ := newSession(t, Config{})
	r, err := s.Refresh(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Empty() || r.Fresh || !r.BarTS.IsZero() {
		t.Errorf("expected empty non-fresh report, got %+v", r)
	}
	if r.Patterns == nil || r.Momentum == nil {
		t.Error("report slices must be non-nil")
	}
}

func TestOnTick_FeedsTracker(t *testing.T) {
	s, _ := newSession(t, Config{})
	s.OnTick(model.Tick{TS: t0, Price: 100})
	s.OnTick(model.Tick{TS: t0.Add(time.Second), Price: 99})

	_, moves, err := s.Evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 1 || moves[0].Category != model.SharpDrop {
		t.Errorf("expected Sharp Drop from ticks, got %+v", moves)
	}
}

var small = indicator.Config{RSIPeriod: 3, MACDFast: 2, MACDSlow: 4, MACDSignal: 2}

func closeTo(a, b indicator.Point) bool {
	return a.Valid == b.Valid && math.Abs(a.V-b.V) < 1e-9
}

func sameReading(a, b indicator.Reading) bool {
	return closeTo(a.RSI, b.RSI) && closeTo(a.MACD, b.MACD) && closeTo(a.Signal, b.Signal)
}

func TestReading_MatchesBatchCompute(t *testing.T) {
	s, _ := newSession(t, Config{Indicators: small})
	closes := []float64{10, 10.4, 10.1, 10.8, 11.2, 10.9, 11.5, 11.9, 11.4, 12.1}
	for i, c := range closes {
		if err := s.OnBar(flat(i, c)); err != nil {
			t.Fatal(err)
		}
	}

	got, ok := s.Reading()
	if !ok {
		t.Fatal("expected a reading")
	}
	series := indicator.Compute(small, closes)
	want, _ := series.Last()
	if !want.Complete() || !sameReading(got, want) {
		t.Errorf("streaming reading %+v != batch %+v", got, want)
	}
}

func TestOnBar_ReplaceDoesNotDoubleCount(t *testing.T) {
	s, m := newSession(t, Config{
		Indicators: small,
		Window:     barwindow.Config{OnDuplicate: barwindow.ReplaceDuplicate},
	})
	closes := []float64{10, 10.4, 10.1, 10.8, 11.2, 10.9, 11.5, 11.9}
	for i, c := range closes {
		s.OnBar(flat(i, c))
	}
	// Refresh the forming bar twice.
	last := len(closes) - 1
	s.OnBar(flat(last, 12.3))
	if err := s.OnBar(flat(last, 12.6)); err != nil {
		t.Fatal(err)
	}

	if s.Window().Size() != len(closes) {
		t.Fatalf("replace changed window size to %d", s.Window().Size())
	}
	if got := testutil.ToFloat64(m.BarsReplaced); got != 2 {
		t.Errorf("expected 2 replacements, got %v", got)
	}

	final := append(append([]float64{}, closes[:last]...), 12.6)
	series := indicator.Compute(small, final)
	want, _ := series.Last()
	got, _ := s.Reading()
	if !sameReading(got, want) {
		t.Errorf("reading after replace %+v != batch over final closes %+v", got, want)
	}
}

func TestOnBar_ReplaceRefreshesNewestTick(t *testing.T) {
	s, _ := newSession(t, Config{
		Window: barwindow.Config{OnDuplicate: barwindow.ReplaceDuplicate},
	})
	ctx := context.Background()

	if _, err := s.Refresh(ctx, []model.Bar{flat(0, 100)}); err != nil {
		t.Fatal(err)
	}
	// The forming bar is refreshed twice at the same timestamp.
	s.OnBar(flat(0, 101))
	if err := s.OnBar(flat(0, 102)); err != nil {
		t.Fatal(err)
	}

	if s.Window().Size() != 1 || s.Tracker().Size() != 1 {
		t.Fatalf("replace must not grow history: window=%d ticks=%d", s.Window().Size(), s.Tracker().Size())
	}
	if got := s.Tracker().Prices()[0]; got != 102 {
		t.Errorf("expected newest tick price 102, got %v", got)
	}

	r, err := s.Refresh(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Momentum) != 0 {
		t.Errorf("a single bar has nothing to compare against, got %+v", r.Momentum)
	}

	// An unchanged re-read of the forming bar is not a new observation.
	if _, err := s.Refresh(ctx, []model.Bar{flat(1, 103)}); err != nil {
		t.Fatal(err)
	}
	r, err = s.Refresh(ctx, []model.Bar{flat(1, 103)})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Momentum) != 0 {
		t.Errorf("unchanged re-read reported momentum again: %+v", r.Momentum)
	}

	r, err = s.Refresh(ctx, []model.Bar{flat(1, 100.2)})
	if err != nil {
		t.Fatal(err)
	}
	for _, mv := range r.Momentum {
		if mv.From.Equal(mv.To) {
			t.Fatalf("momentum compared a bar with itself: %+v", mv)
		}
	}
	if s.Tracker().Size() != 2 {
		t.Errorf("expected 2 ticks, got %d", s.Tracker().Size())
	}
}
