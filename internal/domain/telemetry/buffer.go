package telemetry

import "sync"

// DefaultCapacity bounds the server-side aggregate history per kind.
const DefaultCapacity = 1000

// Buffer is a fixed-capacity ring of samples. Once full, each append
// overwrites the oldest entry. It is safe for concurrent use.
type Buffer struct {
	mu    sync.RWMutex
	items []Sample
	head  int // index of the oldest sample
	size  int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: make([]Sample, capacity)}
}

// Append adds s at the tail, evicting the oldest sample when full.
func (b *Buffer) Append(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.items)
	if b.size < capacity {
		b.items[(b.head+b.size)%capacity] = s
		b.size++
		return
	}
	b.items[b.head] = s
	b.head = (b.head + 1) % capacity
}

// Snapshot copies the most recent limit samples, oldest first. A
// non-positive limit returns everything.
func (b *Buffer) Snapshot(limit int) []Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Sample, n)
	capacity := len(b.items)
	start := b.head + b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.items[(start+i)%capacity]
	}
	return out
}

// Last returns the newest sample.
func (b *Buffer) Last() (Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return Sample{}, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.items)
	b.head = 0
	b.size = 0
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *Buffer) Cap() int {
	return len(b.items)
}
