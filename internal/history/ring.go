// Package history holds the rolling per-hand trajectories and the
// last-fired clocks the gesture classifier consults.
package history

import "time"

// DefaultCapacity is the number of wrist samples kept per hand.
const DefaultCapacity = 30

// Sample is one wrist-x observation.
type Sample struct {
	X  float64
	At time.Time
}

// Ring is a fixed-capacity FIFO of samples. Pushing onto a full ring evicts
// the oldest sample. The zero value is unusable; use NewRing.
type Ring struct {
	buf   []Sample
	start int
	n     int
}

// NewRing creates a ring holding at most capacity samples. Non-positive
// capacities fall back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]Sample, capacity)}
}

// Push appends s, evicting the oldest sample when full.
func (r *Ring) Push(s Sample) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of samples held.
func (r *Ring) Len() int {
	return r.n
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// At returns the i-th sample, oldest first. It panics if i is out of range.
func (r *Ring) At(i int) Sample {
	if i < 0 || i >= r.n {
		panic("history: index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Samples returns a copy of the held samples, oldest first.
func (r *Ring) Samples() []Sample {
	out := make([]Sample, r.n)
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}
