// Package ringbuf provides a single-owner FIFO ring buffer that evicts its
// oldest element once a fixed capacity is reached. With capacity <= 0 the ring
// is unbounded and grows by doubling. It performs no locking; callers own it
// from exactly one goroutine.
package ringbuf

// minBuf is the initial backing size of an unbounded ring.
const minBuf = 16

// Ring is a FIFO over a power-of-two backing slice indexed by bitmask.
// head and tail are monotonic counters; the element at position p lives at
// buf[p&mask].
type Ring[T any] struct {
	buf  []T
	mask uint64

	head uint64 // next write position
	tail uint64 // oldest live element

	limit   int // 0 = unbounded
	evicted uint64
}

// New creates a ring holding at most capacity elements.
// capacity <= 0 creates an unbounded ring.
func New[T any](capacity int) *Ring[T] {
	size := minBuf
	if capacity > 0 {
		size = nextPow2(capacity)
		if size < 2 {
			size = 2
		}
	} else {
		capacity = 0
	}
	return &Ring[T]{
		buf:   make([]T, size),
		mask:  uint64(size - 1),
		limit: capacity,
	}
}

// Push appends v. When the ring is at capacity the oldest element is removed
// first and returned with ok=true.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	n := r.Len()
	if r.limit > 0 && n == r.limit {
		idx := r.tail & r.mask
		evicted, ok = r.buf[idx], true
		var zero T
		r.buf[idx] = zero
		r.tail++
		r.evicted++
	} else if n == len(r.buf) {
		r.grow()
	}

	r.buf[r.head&r.mask] = v
	r.head++
	return evicted, ok
}

// At returns the i-th element counting from the oldest (0) to Len()-1.
func (r *Ring[T]) At(i int) (T, bool) {
	if i < 0 || i >= r.Len() {
		var zero T
		return zero, false
	}
	return r.buf[(r.tail+uint64(i))&r.mask], true
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (T, bool) {
	return r.At(r.Len() - 1)
}

// ReplaceNewest overwrites the most recently pushed element.
// Returns false if the ring is empty.
func (r *Ring[T]) ReplaceNewest(v T) bool {
	if r.Len() == 0 {
		return false
	}
	r.buf[(r.head-1)&r.mask] = v
	return true
}

// LastN copies the newest n elements in insertion order. It returns fewer
// when the ring holds fewer, and an empty slice when n <= 0 or the ring is
// empty.
func (r *Ring[T]) LastN(n int) []T {
	size := r.Len()
	if n > size {
		n = size
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := r.head - uint64(n)
	for i := range out {
		out[i] = r.buf[(start+uint64(i))&r.mask]
	}
	return out
}

// Slice copies every live element, oldest first.
func (r *Ring[T]) Slice() []T {
	return r.LastN(r.Len())
}

// Len returns the current number of elements.
func (r *Ring[T]) Len() int {
	return int(r.head - r.tail)
}

// Cap returns the configured capacity; 0 means unbounded.
func (r *Ring[T]) Cap() int {
	return r.limit
}

// Evicted returns how many elements were dropped to honour the capacity.
func (r *Ring[T]) Evicted() uint64 {
	return r.evicted
}

// Reset empties the ring, keeping its capacity.
func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.tail = 0, 0
}

// grow doubles the backing slice of an unbounded ring, re-laying elements out
// from index 0.
func (r *Ring[T]) grow() {
	n := r.Len()
	next := make([]T, len(r.buf)*2)
	for i := 0; i < n; i++ {
		next[i] = r.buf[(r.tail+uint64(i))&r.mask]
	}
	r.buf = next
	r.mask = uint64(len(next) - 1)
	r.tail = 0
	r.head = uint64(n)
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
