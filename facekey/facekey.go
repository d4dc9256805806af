package facekey

import (
	"errors"
	"fmt"
)

const (
	// IndexBits is the number of bits reserved for each vertex index in a Key.
	IndexBits = 20
	// MaxIndex is the largest vertex index that can be packed into a Key.
	MaxIndex = 1<<IndexBits - 1

	indexMask = uint64(MaxIndex)
)

// ErrIndexRangeExceeded is returned when a vertex index does not fit in IndexBits.
var ErrIndexRangeExceeded = errors.New("facekey: vertex index exceeds key bit budget")

// Key is the order-independent encoding of a triangular face: the three sorted
// vertex indices packed as z<<40 | y<<20 | x.
type Key uint64

// Sort3 sorts three values with three compare-and-swap steps and reports whether
// an odd number of swaps was needed. The steps are (a>c), (b>c), (a>b), in that order.
//
// Truth table for distinct values 0 < 1 < 2:
//
//	input    swaps  odd
//	0 1 2    0      false
//	1 2 0    2      false
//	2 0 1    2      false
//	0 2 1    1      true
//	1 0 2    1      true
//	2 1 0    1      true
//
// Even permutations keep the winding of the input triangle, odd ones reverse it.
func Sort3(a, b, c int) (x, y, z int, odd bool) {
	if a > c {
		a, c = c, a
		odd = !odd
	}
	if b > c {
		b, c = c, b
		odd = !odd
	}
	if a > b {
		a, b = b, a
		odd = !odd
	}

	return a, b, c, odd
}

// Encode canonicalizes the face (v0, v1, v2). The returned key is identical for
// every permutation of the three indices; flipped is true when the input winding
// is the reverse of the canonical (sorted) one.
func Encode(v0, v1, v2 int) (key Key, flipped bool, err error) {
	for _, v := range [3]int{v0, v1, v2} {
		if v < 0 || v > MaxIndex {
			return 0, false, fmt.Errorf("%w: index %d not in [0, %d]", ErrIndexRangeExceeded, v, MaxIndex)
		}
	}

	x, y, z, odd := Sort3(v0, v1, v2)
	key = Key(uint64(z)<<(2*IndexBits) | uint64(y)<<IndexBits | uint64(x))

	return key, odd, nil
}

// Indices returns the canonical (ascending) vertex indices packed into k.
func (k Key) Indices() (x, y, z int) {
	u := uint64(k)
	return int(u & indexMask), int(u >> IndexBits & indexMask), int(u >> (2 * IndexBits) & indexMask)
}

// Front reports whether a face whose encoding returned flipped belongs to the
// front side of the canonical face.
func Front(flipped bool) bool {
	return !flipped
}
