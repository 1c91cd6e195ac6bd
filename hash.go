// hash.go - bit mixing primitives
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package fips

import (
	"math/bits"

	"github.com/spaolacci/murmur3"
)

// Hash64 returns the canonical 64-bit digest of a byte-string key.
// Identical inputs produce identical digests on every platform; the
// digest is part of the serialization contract - a FiPS instance
// built from strings can only be queried with digests from this
// function.
func Hash64(b []byte) uint64 {
	return murmur3.Sum64(b)
}

// remix is a bijective re-mixer used to decorrelate a key from one
// level to the next (the splitmix64 finalizer).
func remix(z uint64) uint64 {
	z ^= z >> 30
	z *= 0xbf58476d1ce4e5b9
	z ^= z >> 27
	z *= 0x94d049bb133111eb
	z ^= z >> 31
	return z
}

// fastrange maps a uniform 64-bit value to [0, d) by taking the high
// word of the 128-bit product; cheaper than modulo and the bias is
// O(d / 2^64).
func fastrange(h, d uint64) uint64 {
	hi, _ := bits.Mul64(h, d)
	return hi
}
