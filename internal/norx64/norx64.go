// Package norx64 implements the 1024-bit NORX64 permutation F: a quarter-round
// network over sixteen 64-bit words, arranged as a 4x4 matrix. One round applies
// the G function to the four columns of the matrix and then to the four
// diagonals of the result.
package norx64

import (
	"encoding/binary"
	"math/bits"
)

// Words is the number of 64-bit words in the permutation state.
const Words = 16

// RateWords is the number of state words exposed to external data. The
// remaining four words are the capacity.
const RateWords = 12

// A State is the 4x4 word matrix the permutation operates on, row-major.
// Words 0-11 are the rate, words 12-15 the capacity.
type State [Words]uint64

// Rotation amounts for the 64-bit quarter round.
const (
	r0 = 8
	r1 = 19
	r2 = 40
	r3 = 63
)

// h is the non-linear primitive: an approximation of integer addition where
// the AND term supplies the carry. The shifted-out top bit is discarded.
func h(x, y uint64) uint64 {
	return x ^ y ^ ((x & y) << 1)
}

// g is the quarter round. Each h output feeds the next h input before the
// paired rotation is applied; this threading is load-bearing and must not be
// reordered.
func g(a, b, c, d uint64) (uint64, uint64, uint64, uint64) {
	a = h(a, b)
	d = bits.RotateLeft64(a^d, -r0)
	c = h(c, d)
	b = bits.RotateLeft64(b^c, -r1)
	a = h(a, b)
	d = bits.RotateLeft64(a^d, -r2)
	c = h(c, d)
	b = bits.RotateLeft64(b^c, -r3)
	return a, b, c, d
}

// Round applies one full round of F: a column step followed by a diagonal
// step. The eight G applications within each call are mutually independent.
func Round(s *State) {
	s[0], s[4], s[8], s[12] = g(s[0], s[4], s[8], s[12])
	s[1], s[5], s[9], s[13] = g(s[1], s[5], s[9], s[13])
	s[2], s[6], s[10], s[14] = g(s[2], s[6], s[10], s[14])
	s[3], s[7], s[11], s[15] = g(s[3], s[7], s[11], s[15])

	s[0], s[5], s[10], s[15] = g(s[0], s[5], s[10], s[15])
	s[1], s[6], s[11], s[12] = g(s[1], s[6], s[11], s[12])
	s[2], s[7], s[8], s[13] = g(s[2], s[7], s[8], s[13])
	s[3], s[4], s[9], s[14] = g(s[3], s[4], s[9], s[14])
}

// Permute applies the given number of rounds of F to the state.
func Permute(s *State, rounds int) {
	for range rounds {
		Round(s)
	}
}

// Initialization constants u0..u15, defined as F²(0, 1, ..., 15).
//
//nolint:gochecknoglobals // fixed constants
var u = State{
	0xe4d324772b91df79, 0x3aec9abaaeb02ccb, 0x9dfba13db4289311, 0xef9eb4bf5a97f2c8,
	0x3f466e92c1532034, 0xe6e986626cc405c1, 0xace40f3b549184e1, 0xd9cfd35762614477,
	0xb15e641748de5e6b, 0xaa95e955e10f8410, 0x28d1034441a9dd40, 0x7f31bbf964e93bf5,
	0xb5e9e22493dffb96, 0xb980c852479fafbd, 0xda24516bf55eafd4, 0x86026ae8536f1501,
}

// Instance parameters folded into the capacity during initialization.
const (
	paramW = 64  // word width
	paramL = 4   // round count
	paramP = 1   // parallelism degree
	paramT = 256 // tag length in bits
)

// Init loads the initial state for a key and nonce: nonce words, fixed
// constants, key words, and the capacity constants tagged with the instance
// parameters. The result is the permutation's first-round input; the caller
// owns the two four-round sweeps that follow.
func Init(s *State, nonce *[16]byte, key *[32]byte) {
	*s = u
	s[0] = binary.LittleEndian.Uint64(nonce[0:8])
	s[1] = binary.LittleEndian.Uint64(nonce[8:16])
	for i := range 4 {
		s[4+i] = binary.LittleEndian.Uint64(key[8*i : 8*i+8])
	}
	s[12] ^= paramW
	s[13] ^= paramL
	s[14] ^= paramP
	s[15] ^= paramT
}
