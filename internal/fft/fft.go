// SPDX-License-Identifier: MIT

// Package fft provides a process-scoped cache of FFT plans shared by the
// deconvolution and analysis stages.
//
// gonum's fourier.FFT precomputes twiddle factors for one transform length,
// so repeated transforms of the same length should reuse one plan instead of
// rebuilding it per call. A Cache is created once at startup, handed to every
// component that transforms, and closed at shutdown.
//
// The transforms are unnormalized: Sequence(Coefficients(x)) scales the
// input by the transform length. Callers divide by the length exactly once
// after an inverse transform.
package fft

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Cache stores FFT plans keyed by transform length. Safe for concurrent use
// from the processing side; never touch it from the real-time callback.
type Cache struct {
	mu    sync.Mutex
	plans map[int]*fourier.FFT
}

// NewCache creates a plan cache, pre-building plans for the given transform
// lengths so the first measurement pays no setup cost.
func NewCache(sizes ...int) *Cache {
	c := &Cache{plans: make(map[int]*fourier.FFT, len(sizes))}

	for _, n := range sizes {
		c.Get(n)
	}

	return c
}

// Get returns the plan for transform length n, building and caching it on
// first use. Panics if n is not positive.
func (c *Cache) Get(n int) *fourier.FFT {
	if n <= 0 {
		panic("fft: transform length must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.plans == nil {
		c.plans = make(map[int]*fourier.FFT)
	}

	plan, ok := c.plans[n]
	if !ok {
		plan = fourier.NewFFT(n)
		c.plans[n] = plan
	}

	return plan
}

// Len returns the number of cached plans.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.plans)
}

// Close releases every cached plan. The cache stays usable; later lookups
// rebuild their plans.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.plans = nil
}
