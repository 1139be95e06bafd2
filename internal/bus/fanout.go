package bus

import (
	"context"
	"log"
	"sync"

	"candlewatch/internal/model"
)

// FanOut broadcasts reports from a single input channel to N named output
// channels. If an output channel is full, the report is dropped for that
// consumer so a slow sink cannot stall the refresh loop.
type FanOut struct {
	mu      sync.RWMutex
	outputs []subscriber
	bufSize int

	// OnDrop is called when a report is dropped for a subscriber.
	OnDrop func(name string)
}

type subscriber struct {
	name string
	ch   chan model.Report
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new output channel labelled name.
func (f *FanOut) Subscribe(name string) <-chan model.Report {
	ch := make(chan model.Report, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, subscriber{name: name, ch: ch})
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed, then closes every output.
// On cancellation the reports already buffered in input are still delivered.
func (f *FanOut) Run(ctx context.Context, input <-chan model.Report) {
	defer func() {
		f.mu.RLock()
		for _, s := range f.outputs {
			close(s.ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			f.drain(input)
			return
		case r, ok := <-input:
			if !ok {
				return
			}
			f.publish(r)
		}
	}
}

func (f *FanOut) drain(input <-chan model.Report) {
	for {
		select {
		case r, ok := <-input:
			if !ok {
				return
			}
			f.publish(r)
		default:
			return
		}
	}
}

func (f *FanOut) publish(r model.Report) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.outputs {
		select {
		case s.ch <- r:
		default:
			if f.OnDrop != nil {
				f.OnDrop(s.name)
			} else {
				log.Printf("[bus] subscriber %s full, dropping report %s@%s", s.name, r.Symbol, r.BarTS.Format("15:04:05"))
			}
		}
	}
}

// ChannelStat is the fill level of one subscriber channel.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

// ChannelStats returns the fill level of each subscriber channel.
func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, s := range f.outputs {
		stats[i] = ChannelStat{Name: s.name, Len: len(s.ch), Cap: cap(s.ch)}
	}
	return stats
}
