/*
Package bitint provides the bit manipulation helpers used to size and
reorder radix-2 transform buffers.

Design Principles:
- Zero Allocations: All scalar operations use stack memory only
- Predictable Performance: O(1) for sizing, O(exp) per reversed index
- Platform Aware: Uses math/bits so int width is handled by the compiler

Usage:

	// Pad a 1000 sample block to the next radix-2 size
	size := bitint.NextPowerOfTwo(1000) // Returns 1024
	exp := bitint.CeilLog2(1000)        // Returns 10

	// Where does index 1 land in an 8 point butterfly buffer?
	slot := bitint.ReverseBits(1, 3) // Returns 4 (001 -> 100)

----------------------------------------------------------------------

What this code does:

	NextPowerOfTwo returns the next power of 2 greater than or
	equal to size. For powers of 2, it returns the same value.
	For other values, it returns the next higher power of 2.

	The subtraction (size-1) is critical, without the subtraction,
	powers of 2 would be incorrectly doubled.

	WITH subtraction (correct):
	- For input 8 (already a power of 2):
	  size-1 = 7 (binary 0111)
	  bits.Len(7) = 3 (highest bit position is 2^2)
	  1 << 3 = 8 (correctly preserves original power of 2)

	WITHOUT subtraction (incorrect):
	- For input 8 (already a power of 2):
	  bits.Len(8) = 4 (binary 1000 has its highest bit position at 2^3)
	  1 << 4 = 16 (incorrectly doubles the input)

	CeilLog2 is the shift amount NextPowerOfTwo uses, exposed on its
	own because the butterfly needs the stage count, not the size.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
// Examples:
//
//	Input  Output  Explanation
//	4      4      Already power of 2 (preserved)
//	5      8      Next power after 5
//	0      1      Handle zero case
//	-1     1      Handle negative case
func NextPowerOfTwo(size int) int {
	return 1 << CeilLog2(size)
}

// CeilLog2 returns ceil(log2(size)), the exponent of NextPowerOfTwo(size).
// Sizes <= 1 return 0.
func CeilLog2(size int) uint {
	if size <= 1 {
		return 0
	}
	return uint(bits.Len(uint(size - 1)))
}

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// The expression (n & (n-1)) == 0 works because:
//   - Powers of 2 have exactly one bit set
//   - Subtracting 1 from a power of 2 sets all lower bits
//   - AND operation will be 0 only for powers of 2
//
// Examples:
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
//	-8     false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// ReverseBits reverses the lowest exp bits of i. Bits above exp are
// ignored, so the result is always in [0, 2^exp).
//
//	i=1 exp=3: 001 -> 100 = 4
//	i=6 exp=3: 110 -> 011 = 3
func ReverseBits(i uint, exp uint) uint {
	if exp == 0 {
		return 0
	}
	return bits.Reverse(i) >> (bits.UintSize - exp)
}
