package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
)

func report(sym string) model.Report {
	return model.Report{
		Symbol: sym,
		BarTS:  time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC),
		Patterns: []model.PatternEvent{
			{Name: model.Doji, Direction: model.Neutral},
		},
	}
}

func TestFanOut_BroadcastsToAll(t *testing.T) {
	fo := New(10)
	out1 := fo.Subscribe("journal")
	out2 := fo.Subscribe("gateway")

	input := make(chan model.Report, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fo.Run(ctx, input)

	input <- report("AAPL")

	for name, out := range map[string]<-chan model.Report{"journal": out1, "gateway": out2} {
		select {
		case r := <-out:
			if r.Symbol != "AAPL" {
				t.Errorf("%s: expected AAPL, got %s", name, r.Symbol)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: timed out waiting for report", name)
		}
	}
}

func TestFanOut_DropsForSlowSubscriber(t *testing.T) {
	fo := New(1)
	slow := fo.Subscribe("slow")

	var mu sync.Mutex
	var dropped []string
	fo.OnDrop = func(name string) {
		mu.Lock()
		dropped = append(dropped, name)
		mu.Unlock()
	}

	input := make(chan model.Report)
	done := make(chan struct{})
	go func() {
		fo.Run(context.Background(), input)
		close(done)
	}()

	input <- report("AAPL")
	input <- report("MSFT")
	close(input)
	<-done

	if r, ok := <-slow; !ok || r.Symbol != "AAPL" {
		t.Errorf("expected first report to be buffered, got %+v ok=%v", r, ok)
	}
	if _, ok := <-slow; ok {
		t.Error("expected channel closed after Run returns")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(dropped) != 1 || dropped[0] != "slow" {
		t.Errorf("expected one drop for slow, got %v", dropped)
	}

	stats := fo.ChannelStats()
	if len(stats) != 1 || stats[0].Name != "slow" || stats[0].Cap != 1 {
		t.Errorf("unexpected channel stats %+v", stats)
	}
}

type recordingSink struct {
	name string
	mu   sync.Mutex
	got  []model.Report
	err  error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(_ context.Context, r model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r)
	return s.err
}

func TestDispatcher_DeliversAndCountsErrors(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	fo := New(4)
	d := NewDispatcher(fo, m)

	ok := &recordingSink{name: "ok"}
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	ctx := context.Background()
	d.Attach(ctx, ok)
	d.Attach(ctx, bad)

	input := make(chan model.Report, 4)
	input <- report("AAPL")
	input <- model.Report{Symbol: "AAPL"} // empty, skipped
	input <- report("AAPL")
	close(input)

	fo.Run(ctx, input)
	d.Wait()

	if len(ok.got) != 2 || len(bad.got) != 2 {
		t.Errorf("expected 2 non-empty deliveries each, got ok=%d bad=%d", len(ok.got), len(bad.got))
	}
	if got := testutil.ToFloat64(m.SinkErrors.WithLabelValues("bad")); got != 2 {
		t.Errorf("expected 2 sink errors for bad, got %v", got)
	}
	if got := testutil.ToFloat64(m.SinkErrors.WithLabelValues("ok")); got != 0 {
		t.Errorf("expected no errors for ok, got %v", got)
	}
}

func TestFanOut_DeliversBufferedReportsOnCancel(t *testing.T) {
	fo := New(10)
	out := fo.Subscribe("journal")

	input := make(chan model.Report, 3)
	for _, sym := range []string{"AAPL", "MSFT", "NVDA"} {
		input <- report(sym)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fo.Run(ctx, input)

	var got []string
	for r := range out {
		got = append(got, r.Symbol)
	}
	if len(got) != 3 || got[0] != "AAPL" || got[2] != "NVDA" {
		t.Errorf("expected all buffered reports in order, got %v", got)
	}
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Name() string { return "slow" }

func (s *blockingSink) Handle(ctx context.Context, _ model.Report) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatcher_WaitContext(t *testing.T) {
	fo := New(4)
	d := NewDispatcher(fo, nil)
	sink := &blockingSink{release: make(chan struct{})}
	d.Attach(context.Background(), sink)

	input := make(chan model.Report, 1)
	input <- report("AAPL")
	close(input)
	fo.Run(context.Background(), input)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while the sink is busy, got %v", err)
	}

	close(sink.release)
	if err := d.WaitContext(context.Background()); err != nil {
		t.Fatalf("expected sinks drained, got %v", err)
	}
}
