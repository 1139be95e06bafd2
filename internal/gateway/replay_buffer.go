package gateway

import (
	"sync"

	"candlewatch/internal/ringbuf"
)

// replayEntry holds a single broadcast frame for replay.
type replayEntry struct {
	Seq  int64
	Data []byte // pre-built frame JSON
}

// ReplayBuffer keeps the most recent broadcast frames so reconnecting
// clients can catch up. Safe for concurrent use.
type ReplayBuffer struct {
	mu   sync.RWMutex
	ring *ringbuf.Ring[replayEntry]
}

// NewReplayBuffer creates a replay buffer with the given capacity.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{ring: ringbuf.New[replayEntry](capacity)}
}

// Push appends a frame, evicting the oldest when full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	rb.mu.Lock()
	rb.ring.Push(replayEntry{Seq: seq, Data: cp})
	rb.mu.Unlock()
}

// Since returns every held frame with seq > after, in seq order.
func (rb *ReplayBuffer) Since(after int64) []replayEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out []replayEntry
	for _, e := range rb.ring.Slice() {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of frames currently held.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.ring.Len()
}
