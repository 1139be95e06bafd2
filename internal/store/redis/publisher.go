package redis

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
)

const defaultMaxBuffered = 1000

// Publisher is the Redis report sink. Writes go through a circuit breaker;
// while the breaker is open, reports are buffered locally (oldest dropped
// first) and replayed once it closes again.
type Publisher struct {
	write   func(ctx context.Context, r model.Report) error
	cb      *CircuitBreaker
	metrics *metrics.Metrics

	mu     sync.Mutex
	buffer []model.Report
	maxBuf int

	// OnFlush is called after buffered reports are replayed.
	OnFlush func(count int)
}

// NewPublisher wraps w. m may be nil.
func NewPublisher(w *Writer, cb *CircuitBreaker, maxBuffered int, m *metrics.Metrics) *Publisher {
	return newPublisher(w.Write, cb, maxBuffered, m)
}

func newPublisher(write func(context.Context, model.Report) error, cb *CircuitBreaker, maxBuffered int, m *metrics.Metrics) *Publisher {
	if maxBuffered <= 0 {
		maxBuffered = defaultMaxBuffered
	}
	p := &Publisher{
		write:   write,
		cb:      cb,
		metrics: m,
		maxBuf:  maxBuffered,
	}

	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if m != nil {
			m.RedisCircuitBreakerState.Set(float64(to))
			if to == StateOpen {
				m.RedisCircuitBreakerTrips.Inc()
			}
		}
		if to == StateClosed {
			go p.flush(context.Background())
		}
	}
	return p
}

// Name identifies the sink.
func (p *Publisher) Name() string { return "redis" }

// Handle publishes r, or buffers it if the breaker is open.
func (p *Publisher) Handle(ctx context.Context, r model.Report) error {
	start := time.Now()
	err := p.cb.Execute(func() error {
		return p.write(ctx, r)
	})
	if errors.Is(err, ErrCircuitOpen) {
		p.bufferReport(r)
		return nil
	}
	if err == nil && p.metrics != nil {
		p.metrics.RedisWriteDur.Observe(time.Since(start).Seconds())
	}
	return err
}

func (p *Publisher) bufferReport(r model.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buffer) >= p.maxBuf {
		p.buffer = p.buffer[1:]
	}
	p.buffer = append(p.buffer, r)
}

// flush replays buffered reports in arrival order.
func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.buffer) == 0 {
		p.mu.Unlock()
		return
	}
	toFlush := p.buffer
	p.buffer = nil
	p.mu.Unlock()

	flushed := 0
	for _, r := range toFlush {
		if err := p.write(ctx, r); err != nil {
			log.Printf("[redis] replay of buffered report %s@%s failed: %v", r.Symbol, r.BarTS.Format(time.RFC3339), err)
			continue
		}
		flushed++
	}

	log.Printf("[redis] flushed %d/%d buffered reports", flushed, len(toFlush))
	if p.OnFlush != nil {
		p.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered reports waiting to be flushed.
func (p *Publisher) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}
