// marshal.go - Marshal/Unmarshal for the FiPS datastructure
//
// (c) Sudhi Herle 2018
//
// License GPLv2
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package fips

import (
	"encoding/binary"
	"fmt"
	"io"
)

// On-disk layout; all multibyte values little-endian:
//
//	o uint64 tag (0xf1b5)
//	o uint64 number of level bases
//	o level bases, one uint64 each
//	o uint64 number of cache lines
//	o cache lines laid out consecutively (LineSize/8 bytes each)
//
// The upper-rank samples and the key count are not stored; both are
// recomputed from the lines in a single pass on load. The line and
// offset sizes are not stored either - the reader must be given the
// same Config that built the instance (the DB layer records it in its
// own header).
const _Tag uint64 = 0xf1b5

// MarshalBinary encodes the hash function into a binary form suitable
// for durable storage. A subsequent UnmarshalFiPS() with the same
// Config reconstructs an equivalent instance.
func (f *FiPS) MarshalBinary(w io.Writer) (int, error) {
	var x [8]byte

	le := binary.LittleEndian
	wr := newErrWriter(w)

	le.PutUint64(x[:], _Tag)
	n, _ := wr.Write(x[:])

	le.PutUint64(x[:], uint64(len(f.levelBases)))
	m, _ := wr.Write(x[:])
	n += m
	m, _ = wr.Write(u64sToByteSlice(f.levelBases))
	n += m

	le.PutUint64(x[:], f.lines())
	m, _ = wr.Write(x[:])
	n += m
	m, _ = wr.Write(u64sToByteSlice(f.bits))
	n += m

	return n, wr.Error()
}

// UnmarshalFiPS reconstructs a previously marshalled instance from
// 'buf'. 'cfg' must match the configuration the instance was built
// with; a mismatch is either caught as a structural inconsistency or
// silently yields a function computing different values. 'buf' may be
// memory mapped: the returned instance aliases it, so the mapping
// must outlive the instance.
func UnmarshalFiPS(buf []byte, cfg Config) (*FiPS, error) {
	cfg = cfg.withDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}

	le := binary.LittleEndian
	if len(buf) < 24 {
		return nil, ErrTooSmall
	}

	if tag := le.Uint64(buf[:8]); tag != _Tag {
		return nil, fmt.Errorf("%w: bad tag %#x", ErrBadFormat, tag)
	}

	nb := le.Uint64(buf[8:16])
	if nb == 0 || nb > _MaxLevel+1 {
		return nil, fmt.Errorf("%w: %d level bases", ErrBadFormat, nb)
	}
	if uint64(len(buf)) < 24+nb*8 {
		return nil, ErrTooSmall
	}

	f := &FiPS{
		geom: newLineGeom(cfg.LineSize, cfg.OffsetSize),
		cfg:  cfg,
	}
	g := &f.geom

	f.levelBases = bsToUint64Slice(buf[16 : 16+nb*8])
	if f.levelBases[0] != 0 {
		return nil, fmt.Errorf("%w: first level base %d", ErrBadFormat, f.levelBases[0])
	}
	for i := uint64(1); i < nb; i++ {
		d := f.levelBases[i] - f.levelBases[i-1]
		if f.levelBases[i] <= f.levelBases[i-1] || d%g.payload != 0 {
			return nil, fmt.Errorf("%w: level base %d of %d", ErrBadFormat, i, nb)
		}
	}

	buf = buf[16+nb*8:]
	nlines := le.Uint64(buf[:8])
	if nlines*g.payload != f.levelBases[nb-1] {
		return nil, fmt.Errorf("%w: %d lines for %d bits", ErrBadFormat, nlines, f.levelBases[nb-1])
	}
	if uint64(len(buf)) < 8+nlines*g.words*8 {
		return nil, ErrTooSmall
	}

	f.bits = bsToUint64Slice(buf[8 : 8+nlines*g.words*8])
	f.levels = int(nb) - 1
	f.rebuildRank()
	return f, nil
}

// ReadFiPS reads a previously marshalled instance from stream 'r'.
// Unlike UnmarshalFiPS, the result owns its memory.
func ReadFiPS(r io.Reader, cfg Config) (*FiPS, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return UnmarshalFiPS(buf, cfg)
}

// rebuildRank recomputes the upper-rank samples and the key count
// from the bitmap. Each line already stores its offset, so one
// popcount pass over the lines is sufficient.
func (f *FiPS) rebuildRank() {
	g := &f.geom
	if !f.cfg.NoUpperRank {
		f.upperRank = append(f.upperRank, 0)
	}

	var total uint64
	nlines := f.lines()
	for i := uint64(0); i < nlines; i++ {
		if i > 0 && i%g.sampling == 0 && !f.cfg.NoUpperRank {
			f.upperRank = append(f.upperRank, total)
		}
		total += g.popcount(f.bits[i*g.words : (i+1)*g.words])
	}
	if !f.cfg.NoUpperRank && nlines > 0 && nlines%g.sampling == 0 {
		f.upperRank = append(f.upperRank, total)
	}
	f.n = int(total)
}
