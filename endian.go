// endian.go -- endian conversion & unsafe slice-view helpers
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
	"unsafe"
)

// hostLE is true on little-endian machines - the common case we
// optimize the on-disk tables for.
var hostLE = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()

func toLEUint16(v uint16) uint16 {
	if hostLE {
		return v
	}
	return bits.ReverseBytes16(v)
}

func toLEUint32(v uint32) uint32 {
	if hostLE {
		return v
	}
	return bits.ReverseBytes32(v)
}

func toLEUint64(v uint64) uint64 {
	if hostLE {
		return v
	}
	return bits.ReverseBytes64(v)
}

func toBEUint16(v uint16) uint16 {
	if hostLE {
		return bits.ReverseBytes16(v)
	}
	return v
}

func toBEUint32(v uint32) uint32 {
	if hostLE {
		return bits.ReverseBytes32(v)
	}
	return v
}

func toBEUint64(v uint64) uint64 {
	if hostLE {
		return bits.ReverseBytes64(v)
	}
	return v
}

// u64sToByteSlice views a []uint64 as raw bytes without copying.
func u64sToByteSlice(v []uint64) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*8)
}

// u32sToByteSlice views a []uint32 as raw bytes without copying.
func u32sToByteSlice(v []uint32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// bsToUint64Slice views a byte slice as []uint64. 'b' must be 8-byte
// aligned and its length a multiple of 8; both hold for our mmap'd
// tables and heap buffers.
func bsToUint64Slice(b []byte) []uint64 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

// bsToUint32Slice views a byte slice as []uint32.
func bsToUint32Slice(b []byte) []uint32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}
