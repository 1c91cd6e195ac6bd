// endian_le_test.go -- test suite for endian-convertors:
// Run this on Little-endian machines!
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

//go:build 386 || amd64 || arm || arm64 || ppc64le || mipsle || mips64le
// +build 386 amd64 arm arm64 ppc64le mipsle mips64le

package fips

import (
	"testing"
)

func TestEndianOnLE(t *testing.T) {
	assert := newAsserter(t) // this is in helpers_test.go

	a0 := uint32(0xabcd1234)
	b0 := toLEUint32(a0)
	assert(a0 == b0, "uint32 %d != %d", a0, b0)

	a1 := uint64(0xabcd1234baadf00d)
	b1 := toLEUint64(a1)
	assert(a1 == b1, "uint64 %d != %d", a1, b1)

	a2 := uint16(0xabcd)
	b2 := toLEUint16(a2)
	assert(a2 == b2, "uint16 %d != %d", a2, b2)

	b0 = toBEUint32(a0)
	assert(b0 == 0x3412cdab, "uint32-be %d != %d", a0, b0)

	b1 = toBEUint64(a1)
	assert(b1 == 0x0df0adba3412cdab, "uint64-be %d != %d", a1, b1)

	b2 = toBEUint16(a2)
	assert(b2 == 0xcdab, "uint16 %d != %d", a2, b2)
}

func TestSliceViews(t *testing.T) {
	assert := newAsserter(t)

	v := []uint64{0x0102030405060708, 0x1112131415161718}
	bs := u64sToByteSlice(v)
	assert(len(bs) == 16, "u64 view len %d", len(bs))
	assert(bs[0] == 0x08 && bs[8] == 0x18, "u64 view not little-endian")

	v2 := bsToUint64Slice(bs)
	assert(len(v2) == 2, "roundtrip len %d", len(v2))
	assert(v2[0] == v[0] && v2[1] == v[1], "roundtrip mismatch")

	w := []uint32{0xaabbccdd}
	ws := u32sToByteSlice(w)
	assert(len(ws) == 4 && ws[0] == 0xdd, "u32 view wrong")
	w2 := bsToUint32Slice(ws)
	assert(w2[0] == w[0], "u32 roundtrip mismatch")

	assert(u64sToByteSlice(nil) == nil, "empty u64 view")
	assert(bsToUint64Slice(nil) == nil, "empty byte view")
}
