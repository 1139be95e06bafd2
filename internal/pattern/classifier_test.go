package pattern

import (
	"reflect"
	"testing"
	"time"

	"candlewatch/internal/barwindow"
	"candlewatch/internal/indicator"
	"candlewatch/internal/model"
)

var t0 = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

// seq builds consecutive one-minute bars from (open, high, low, close) tuples.
func seq(ohlc ...[4]float64) []model.Bar {
	bars := make([]model.Bar, len(ohlc))
	for i, v := range ohlc {
		bars[i] = model.NewBar(t0.Add(time.Duration(i)*time.Minute), v[0], v[1], v[2], v[3])
	}
	return bars
}

func names(events []model.PatternEvent) map[model.PatternName]model.PatternEvent {
	out := make(map[model.PatternName]model.PatternEvent, len(events))
	for _, e := range events {
		out[e.Name] = e
	}
	return out
}

func TestClassify_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		bars []model.Bar
		want model.PatternName
		dir  model.Direction
	}{
		{"doji", seq([4]float64{10, 11, 9, 10.05}), model.Doji, model.Neutral},
		{"hammer", seq([4]float64{10, 10.3, 9, 10.2}), model.Hammer, model.Up},
		{"shooting star", seq([4]float64{10.2, 11.3, 9.9, 10}), model.ShootingStar, model.Down},
		{"bullish marubozu", seq([4]float64{10, 12, 9.95, 11.9}), model.BullishMarubozu, model.Up},
		{"bearish marubozu", seq([4]float64{11.9, 12, 9.95, 10}), model.BearishMarubozu, model.Down},
		{"hanging man", seq([4]float64{10, 10.3, 9, 10.2}), model.HangingMan, model.Down},
		{"inverted hammer", seq([4]float64{10.2, 11.3, 9.9, 10}), model.InvertedHammer, model.Up},
		{"bullish engulfing", seq(
			[4]float64{11, 11.2, 9.8, 10},
			[4]float64{9.9, 11.6, 9.8, 11.5},
		), model.BullishEngulfing, model.Up},
		{"bearish engulfing", seq(
			[4]float64{10, 12, 9, 11},
			[4]float64{11, 11.5, 8, 9},
		), model.BearishEngulfing, model.Down},
		{"piercing line", seq(
			[4]float64{11, 11.1, 10, 10.1},
			[4]float64{9.8, 10.8, 9.7, 10.7},
		), model.PiercingLine, model.Up},
		{"dark cloud cover", seq(
			[4]float64{10, 11, 9.9, 10.9},
			[4]float64{11.2, 11.3, 10.2, 10.3},
		), model.DarkCloudCover, model.Down},
		{"morning star", seq(
			[4]float64{12, 12.1, 10.9, 11},
			[4]float64{10.8, 10.9, 10.5, 10.6},
			[4]float64{10.7, 11.6, 10.6, 11.5},
		), model.MorningStar, model.Up},
		{"evening star", seq(
			[4]float64{10, 11.1, 9.9, 11},
			[4]float64{11.2, 11.5, 11.1, 11.4},
			[4]float64{11.3, 11.35, 10.4, 10.5},
		), model.EveningStar, model.Down},
		{"three white soldiers", seq(
			[4]float64{10, 11.1, 9.9, 11},
			[4]float64{11, 12.1, 10.9, 12},
			[4]float64{12, 13.1, 11.9, 13},
		), model.ThreeWhiteSoldiers, model.Up},
		{"three black crows", seq(
			[4]float64{13, 13.1, 11.9, 12},
			[4]float64{12, 12.1, 10.9, 11},
			[4]float64{11, 11.1, 9.9, 10},
		), model.ThreeBlackCrows, model.Down},
		{"rising three methods", seq(
			[4]float64{10, 12.1, 9.9, 12},
			[4]float64{11.8, 11.9, 11.1, 11.2},
			[4]float64{11.3, 12.6, 11.2, 12.5},
		), model.RisingThreeMethods, model.Up},
		{"falling three methods", seq(
			[4]float64{12, 12.1, 9.9, 10},
			[4]float64{10.2, 10.9, 10.1, 10.8},
			[4]float64{10.7, 10.8, 9.4, 9.5},
		), model.FallingThreeMethods, model.Down},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := names(Classify(tc.bars, nil))
			ev, ok := got[tc.want]
			if !ok {
				t.Fatalf("expected %q in %v", tc.want, got)
			}
			if ev.Direction != tc.dir {
				t.Errorf("%s: expected direction %s, got %s", tc.want, tc.dir, ev.Direction)
			}
			if ev.Strength != nil {
				t.Errorf("%s: strength must be omitted without indicators, got %d", tc.want, *ev.Strength)
			}
			last := tc.bars[len(tc.bars)-1]
			if !ev.TS.Equal(last.TS) {
				t.Errorf("%s: expected ts %v, got %v", tc.want, last.TS, ev.TS)
			}
			if n := len(ev.Evidence); n < 1 || n > 3 || !ev.Evidence[n-1].TS.Equal(last.TS) {
				t.Errorf("%s: bad evidence window %+v", tc.want, ev.Evidence)
			}
		})
	}
}

func TestClassify_SingleBarStillReportsDoji(t *testing.T) {
	events := Classify(seq([4]float64{10, 11, 9, 10}), nil)
	if _, ok := names(events)[model.Doji]; !ok {
		t.Fatalf("expected Doji from a single bar, got %v", events)
	}
	for _, e := range events {
		if len(e.Evidence) != 1 {
			t.Errorf("%s: single-bar input produced evidence of %d bars", e.Name, len(e.Evidence))
		}
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	got := Classify(nil, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestClassify_ZeroRangeSkipsRatioRules(t *testing.T) {
	bars := seq(
		[4]float64{11, 11.2, 9.8, 10},
		[4]float64{10, 10, 10, 10},
	)
	for _, e := range Classify(bars, nil) {
		for _, r := range rules {
			if r.name == e.Name && r.ratio {
				t.Errorf("ratio rule %s matched a zero-range bar", e.Name)
			}
		}
	}
}

func TestClassify_NoMatchIsEmpty(t *testing.T) {
	// Medium body, balanced shadows, no multi-bar setup.
	bars := seq([4]float64{10, 10.8, 9.6, 10.4})
	if got := Classify(bars, nil); len(got) != 0 {
		t.Errorf("expected no patterns, got %v", got)
	}
}

func TestDojiProperty(t *testing.T) {
	for _, o := range []float64{0.5, 1, 10, 99.99, 1234.5} {
		for _, up := range []float64{0, 0.01, 1, 5} {
			for _, down := range []float64{0, 0.02, 2} {
				if up+down == 0 {
					continue
				}
				b := seq([4]float64{o, o + up, o - down, o})
				if _, ok := names(Classify(b, nil))[model.Doji]; !ok {
					t.Errorf("open==close bar o=%v up=%v down=%v missing Doji", o, up, down)
				}
			}
		}
	}
}

func TestEngulfingMutualExclusion(t *testing.T) {
	prices := []float64{9, 9.5, 10, 10.5, 11, 11.5, 12}
	for _, po := range prices {
		for _, pc := range prices {
			for _, lo := range prices {
				for _, lc := range prices {
					bars := seq(
						[4]float64{po, max(po, pc) + 0.5, min(po, pc) - 0.5, pc},
						[4]float64{lo, max(lo, lc) + 0.5, min(lo, lc) - 0.5, lc},
					)
					got := names(Classify(bars, nil))
					_, bull := got[model.BullishEngulfing]
					_, bear := got[model.BearishEngulfing]
					if bull && bear {
						t.Fatalf("both engulfing patterns matched p=(%v,%v) l=(%v,%v)", po, pc, lo, lc)
					}
				}
			}
		}
	}
}

func TestClassify_DeterministicAndIdempotent(t *testing.T) {
	w := barwindow.New(barwindow.Config{})
	for _, b := range seq(
		[4]float64{12, 12.1, 10.9, 11},
		[4]float64{10.8, 10.9, 10.5, 10.6},
		[4]float64{10.7, 11.6, 10.6, 11.5},
	) {
		if err := w.Append(b); err != nil {
			t.Fatal(err)
		}
	}
	series := indicator.Compute(indicator.DefaultConfig(), w.Closes())

	first := ClassifyWindow(w, &series)
	second := ClassifyWindow(w, &series)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("classification not idempotent:\n%v\n%v", first, second)
	}

	clone := barwindow.New(barwindow.Config{})
	for _, b := range w.Bars() {
		clone.Append(b)
	}
	if third := ClassifyWindow(clone, &series); !reflect.DeepEqual(first, third) {
		t.Fatalf("identical windows classified differently:\n%v\n%v", first, third)
	}
}

func TestPatterns_StopsEarly(t *testing.T) {
	// Hammer-shaped bar matches several rules; stopping after one must not panic.
	bars := seq([4]float64{10, 10.3, 9, 10.2})
	count := 0
	for range Patterns(bars, nil) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected to consume exactly one event, got %d", count)
	}
}

func reading(rsi, macd, signal float64) *indicator.Reading {
	return &indicator.Reading{
		RSI:    indicator.Point{V: rsi, Valid: true},
		MACD:   indicator.Point{V: macd, Valid: true},
		Signal: indicator.Point{V: signal, Valid: true},
	}
}

func TestStrength(t *testing.T) {
	cases := []struct {
		name   string
		dir    model.Direction
		r      *indicator.Reading
		want   int
		wantOK bool
	}{
		{"no reading", model.Up, nil, 0, false},
		{"warming up", model.Up, &indicator.Reading{RSI: indicator.Point{V: 70, Valid: true}}, 0, false},
		{"up both agree", model.Up, reading(60, 1, 0.5), 90, true},
		{"up rsi only", model.Up, reading(60, 0.1, 0.5), 70, true},
		{"up none", model.Up, reading(40, 0.1, 0.5), 50, true},
		{"down both agree", model.Down, reading(35, -1, -0.2), 90, true},
		{"down macd only", model.Down, reading(55, -1, -0.2), 70, true},
		{"down against", model.Down, reading(60, 1, 0.5), 50, true},
		{"rsi exactly 50", model.Up, reading(50, 0, 0), 50, true},
		{"neutral", model.Neutral, reading(90, 5, 1), 50, true},
	}
	for _, tc := range cases {
		got, ok := Strength(tc.dir, tc.r)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("%s: Strength()=%d,%v want %d,%v", tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestClassify_StrengthAttachedAndBounded(t *testing.T) {
	bars := seq(
		[4]float64{10, 12, 9, 11},
		[4]float64{11, 11.5, 8, 9},
	)
	for _, r := range []*indicator.Reading{
		reading(0, -100, 100),
		reading(100, 100, -100),
		reading(50, 0, 0),
	} {
		for _, e := range Classify(bars, r) {
			if e.Strength == nil {
				t.Fatalf("%s: expected strength with a complete reading", e.Name)
			}
			if s := *e.Strength; s < 0 || s > 100 {
				t.Errorf("%s: strength %d out of [0,100]", e.Name, s)
			}
		}
	}

	got := names(Classify(bars, reading(30, -1, 0)))
	ev := got[model.BearishEngulfing]
	if ev.Strength == nil || *ev.Strength != 90 {
		t.Errorf("bearish engulfing with bearish momentum: expected strength 90, got %v", ev.Strength)
	}
}

func TestClassify_EvidenceIsCopied(t *testing.T) {
	bars := seq(
		[4]float64{10, 12, 9, 11},
		[4]float64{11, 11.5, 8, 9},
	)
	events := Classify(bars, nil)
	bars[1].Close = 1000
	for _, e := range events {
		for _, b := range e.Evidence {
			if b.Close == 1000 {
				t.Fatalf("%s: evidence aliases the caller's slice", e.Name)
			}
		}
	}
}

func TestNames_CoversTable(t *testing.T) {
	if got := len(Names()); got != 17 {
		t.Errorf("expected 17 patterns, got %d", got)
	}
	for _, n := range Names() {
		if n.Meaning() == "" {
			t.Errorf("%s has no meaning text", n)
		}
	}
}
