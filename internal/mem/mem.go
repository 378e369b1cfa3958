// Package mem holds the byte-slice helpers shared by the engine datapath and
// the boundary layers.
package mem

import (
	"crypto/subtle"
	"slices"
)

// XOR XORs a and b into dst. The three slices must be the same length; dst
// may alias either input.
func XOR(dst, a, b []byte) {
	subtle.XORBytes(dst, a, b)
}

// SliceForAppend extends in by n bytes, returning the extended slice and a
// second slice aliasing just the extension. No allocation is performed when
// in already has the capacity.
func SliceForAppend(in []byte, n int) (head, tail []byte) {
	head = slices.Grow(in, n)
	head = head[:len(in)+n]
	tail = head[len(in):]
	return head, tail
}
