// Package window keeps the fixed-size window of recent samples shown on screen.
package window

import "go.aimuz.me/eegview/internal/types"

// Append returns the window that results from adding s to prev with capacity n.
// The result always has exactly n samples: the oldest are dropped when prev is
// full and zero vectors are prepended while fewer than n real samples exist.
// prev is never modified.
func Append(prev types.Window, s types.Sample, n int) types.Window {
	if n < 1 {
		n = 1
	}

	next := make(types.Window, 0, len(prev)+1)
	next = append(next, prev...)
	next = append(next, s)

	if len(next) > n {
		next = next[len(next)-n:]
	}

	out := make(types.Window, n)
	copy(out[n-len(next):], next)
	return out
}

// Buffer owns a window of fixed capacity.
// It is not safe for concurrent use; the viewer loop is its only writer.
type Buffer struct {
	capacity int
	samples  types.Window
	real     int // Real (non-padding) samples currently in the window
}

// New creates a buffer of capacity n. Capacities below 1 are raised to 1.
func New(n int) *Buffer {
	if n < 1 {
		n = 1
	}
	return &Buffer{capacity: n}
}

// Append adds s and returns a copy of the resulting window.
func (b *Buffer) Append(s types.Sample) types.Window {
	b.samples = Append(b.samples, s, b.capacity)
	if b.real < b.capacity {
		b.real++
	}
	return b.samples.Clone()
}

// Snapshot returns a copy of the current window.
// Before the first append the window is empty.
func (b *Buffer) Snapshot() types.Window {
	return b.samples.Clone()
}

// Capacity returns the fixed capacity.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Real returns how many slots hold real samples rather than padding.
func (b *Buffer) Real() int {
	return b.real
}

// HasData reports whether at least one real sample has been appended.
func (b *Buffer) HasData() bool {
	return b.real > 0
}
