package bus

import (
	"context"
	"log"
	"sync"

	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
)

// Dispatcher subscribes each sink to a FanOut and drains its channel on a
// dedicated goroutine.
type Dispatcher struct {
	fo      *FanOut
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewDispatcher wires drop accounting into fo. m may be nil.
func NewDispatcher(fo *FanOut, m *metrics.Metrics) *Dispatcher {
	if m != nil {
		fo.OnDrop = func(name string) {
			m.FanoutDropsTotal.WithLabelValues(name).Inc()
		}
	}
	return &Dispatcher{fo: fo, metrics: m}
}

// Attach subscribes sink and starts delivering reports to it. Must be called
// before the FanOut starts running. Empty reports are skipped. Sink errors
// are logged and counted, never retried.
func (d *Dispatcher) Attach(ctx context.Context, sink model.ReportSink) {
	ch := d.fo.Subscribe(sink.Name())
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for r := range ch {
			if r.Empty() {
				continue
			}
			if err := sink.Handle(ctx, r); err != nil {
				log.Printf("[bus] sink %s: %v", sink.Name(), err)
				if d.metrics != nil {
					d.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
				}
			}
		}
	}()
}

// Wait blocks until every attached sink has drained its channel. The FanOut
// closes the channels when its Run returns.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if the sinks are
// still draining when ctx ends.
func (d *Dispatcher) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
