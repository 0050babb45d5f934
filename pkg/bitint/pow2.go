/*
Package bitint provides power-of-two helpers for FFT and ring buffer
sizing. FFT transforms want power-of-two lengths, and the lock-free
frame rings require power-of-two capacities so that index wrapping
reduces to a bit mask.

All functions are allocation-free and constant time.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= n.
// Exact powers of two are returned unchanged; n <= 0 yields 1.
//
// The n-1 before bits.Len is what preserves exact powers of two:
// without it, Len(8) = 4 would double 8 to 16.
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// A power of two has exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
