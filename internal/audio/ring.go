// SPDX-License-Identifier: MIT

package audio

import (
	"sync/atomic"

	"roomsweep/pkg/bitint"
)

// Frame is one fixed-size block of float32 samples as exchanged with the
// driver callback. Input frames are interleaved when more than one channel
// is captured.
type Frame struct {
	Samples []float32
}

// Ring is a single-producer single-consumer queue of pre-allocated frames.
// The producer reserves the next slot, fills it and commits; the consumer
// reads the front slot and releases it. Coordination is two atomic
// counters, so both ends are safe inside the driver callback: no locks, no
// allocation, no blocking.
type Ring struct {
	mask  uint64
	slots []Frame
	head  atomic.Uint64 // next slot to consume
	tail  atomic.Uint64 // next slot to produce
}

// NewRing builds a ring of capacity frames (rounded up to a power of two),
// each holding frameLen samples.
func NewRing(capacity, frameLen int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	capacity = bitint.NextPowerOfTwo(capacity)
	r := &Ring{
		mask:  uint64(capacity - 1),
		slots: make([]Frame, capacity),
	}
	for i := range r.slots {
		r.slots[i] = Frame{Samples: make([]float32, frameLen)}
	}
	return r
}

// Reserve returns the next producer slot, or nil when the ring is full.
// The slot belongs to the producer until Commit.
func (r *Ring) Reserve() *Frame {
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.slots)) {
		return nil
	}
	return &r.slots[tail&r.mask]
}

// Commit publishes the slot handed out by the last Reserve.
func (r *Ring) Commit() {
	r.tail.Add(1)
}

// Front returns the oldest committed frame, or nil when the ring is empty.
// The slot belongs to the consumer until Release.
func (r *Ring) Front() *Frame {
	head := r.head.Load()
	if head == r.tail.Load() {
		return nil
	}
	return &r.slots[head&r.mask]
}

// Release recycles the slot handed out by the last Front.
func (r *Ring) Release() {
	r.head.Add(1)
}

// Push copies samples into the next free slot. It reports false when the
// ring is full.
func (r *Ring) Push(samples []float32) bool {
	f := r.Reserve()
	if f == nil {
		return false
	}
	copy(f.Samples, samples)
	r.Commit()
	return true
}

// Pop copies the oldest frame into dst. It reports false when the ring is
// empty.
func (r *Ring) Pop(dst []float32) bool {
	f := r.Front()
	if f == nil {
		return false
	}
	copy(dst, f.Samples)
	r.Release()
	return true
}

// Len is the number of committed frames waiting to be consumed. The value
// is approximate while both ends are active.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap is the fixed slot count.
func (r *Ring) Cap() int {
	return len(r.slots)
}
