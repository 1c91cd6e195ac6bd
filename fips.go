// fips.go - cache-line minimal perfect hashing
//
// Implements the FiPS algorithm: perfect hashing through fingerprinting
// with a two-tier rank index embedded in cache-line sized bitmap lines.
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
	"bytes"
	"fmt"
	"io"
	"unsafe"
)

// Config selects one of the supported FiPS variants and the load
// factor. The zero value picks the defaults: 256-bit lines, 16-bit
// offsets, gamma 2.0, upper-rank sampling enabled.
type Config struct {
	// Gamma is the expansion factor for each level's bit domain.
	// Must be > 1.0; larger values trade space for fewer levels.
	Gamma float64

	// LineSize is the size of one bitmap line in bits; one of
	// 64, 128, 256, 512 or 1024. 256 matches a typical prefetched
	// cache line pair and is the sweet spot.
	LineSize uint32

	// OffsetSize is the width of the per-line rank offset field in
	// bits; 16 or 32.
	OffsetSize uint32

	// NoUpperRank disables the second rank tier. The per-line offsets
	// must then index every set bit on their own, which caps the key
	// set at roughly 2^OffsetSize bits of bitmap; construction fails
	// with ErrOffsetOverflow beyond that.
	NoUpperRank bool
}

// withDefaults fills in the zero fields.
func (c Config) withDefaults() Config {
	if c.Gamma == 0 {
		c.Gamma = 2.0
	}
	if c.LineSize == 0 {
		c.LineSize = 256
	}
	if c.OffsetSize == 0 {
		c.OffsetSize = 16
	}
	return c
}

func (c Config) check() error {
	switch c.LineSize {
	case 64, 128, 256, 512, 1024:
	default:
		return fmt.Errorf("%w: line size %d", ErrInvalidParams, c.LineSize)
	}
	switch c.OffsetSize {
	case 16, 32:
	default:
		return fmt.Errorf("%w: offset size %d", ErrInvalidParams, c.OffsetSize)
	}
	if uint64(c.OffsetSize) >= uint64(c.LineSize) {
		return fmt.Errorf("%w: offset %d doesn't fit line %d",
			ErrInvalidParams, c.OffsetSize, c.LineSize)
	}
	if c.Gamma <= 1.0 {
		return fmt.Errorf("%w: gamma %g", ErrInvalidParams, c.Gamma)
	}
	return nil
}

// FiPS is a computed minimal perfect hash function over a static key
// set. It is immutable once constructed; concurrent readers need no
// synchronization.
type FiPS struct {
	bits       []uint64 // cache lines, geom.words words per line
	levelBases []uint64 // global payload-bit index where each level starts
	upperRank  []uint64 // cumulative set-bit samples every geom.sampling lines
	levels     int
	n          int // number of keys

	geom lineGeom
	cfg  Config
}

// New builds a minimal perfect hash function over 'keys'. The slice is
// owned by the constructor: it is sorted in place and reused as scratch
// across levels. The keys must be distinct 64-bit digests; hash raw
// byte strings with Hash64() first or use NewFromStrings().
func New(keys []uint64, cfg Config) (*FiPS, error) {
	cfg = cfg.withDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}

	f := &FiPS{
		geom: newLineGeom(cfg.LineSize, cfg.OffsetSize),
		cfg:  cfg,
	}
	if err := f.construct(keys); err != nil {
		return nil, err
	}
	return f, nil
}

// NewFromStrings builds a minimal perfect hash function over byte-string
// keys, digesting each with Hash64().
func NewFromStrings(keys []string, cfg Config) (*FiPS, error) {
	digests := make([]uint64, len(keys))
	for i, s := range keys {
		digests[i] = Hash64([]byte(s))
	}
	return New(digests, cfg)
}

// Builder accumulates keys for a FiPS construction. Once all keys are
// added, Freeze() builds the hash function; the builder cannot be
// reused afterwards.
type Builder struct {
	keys   []uint64
	cfg    Config
	frozen bool
}

// NewBuilder returns a Builder for the given configuration. The
// configuration is validated here so that a bad parameter combination
// surfaces before any keys are added.
func NewBuilder(cfg Config) (*Builder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	b := &Builder{
		keys: make([]uint64, 0, 1024),
		cfg:  cfg,
	}
	return b, nil
}

// Add adds a new key digest. Duplicate digests are a caller error; the
// peeling loop cannot separate them and Freeze() will fail.
func (b *Builder) Add(key uint64) error {
	if b.frozen {
		return ErrFrozen
	}
	b.keys = append(b.keys, key)
	return nil
}

// AddString digests 's' with Hash64() and adds it.
func (b *Builder) AddString(s string) error {
	return b.Add(Hash64([]byte(s)))
}

// Freeze builds the minimal perfect hash function over all added keys.
func (b *Builder) Freeze() (*FiPS, error) {
	if b.frozen {
		return nil, ErrFrozen
	}
	b.frozen = true

	keys := b.keys
	b.keys = nil
	return New(keys, b.cfg)
}

// Find returns the unique index in [0, Len()) for key 'k'. The return
// value is meaningful ONLY for keys in the original set; for any other
// key it is either (x, true) for some arbitrary colliding x, or
// (0, false) when the key misses every level. Callers needing a
// membership test must keep a separate filter.
func (f *FiPS) Find(key uint64) (uint64, bool) {
	g := &f.geom
	w := g.words
	for lvl := 0; lvl < f.levels; lvl++ {
		base := f.levelBases[lvl]
		fp := fastrange(key, f.levelBases[lvl+1]-base) + base
		idx := fp / g.payload
		b := fp % g.payload

		line := f.bits[idx*w : idx*w+w]
		if g.isSet(line, b) {
			r := g.offset(line) + g.rank(line, b)
			if !f.cfg.NoUpperRank {
				r += f.upperRank[idx/g.sampling]
			}
			return r, true
		}
		key = remix(key)
	}
	return 0, false
}

// FindString looks up a byte-string key added via AddString or
// NewFromStrings.
func (f *FiPS) FindString(s string) (uint64, bool) {
	return f.Find(Hash64([]byte(s)))
}

// Len returns the number of keys in the hash function.
func (f *FiPS) Len() int {
	return f.n
}

// Levels returns the number of peeling levels in the structure.
func (f *FiPS) Levels() int {
	return f.levels
}

// Bits returns the total storage footprint in bits: the level table,
// the upper-rank samples, the bitmap lines and the fixed struct
// overhead.
func (f *FiPS) Bits() uint64 {
	return 8 * (uint64(len(f.levelBases))*8 +
		uint64(len(f.upperRank))*8 +
		uint64(len(f.bits))*8 +
		uint64(unsafe.Sizeof(*f)))
}

// lines returns the number of cache lines in the bitmap.
func (f *FiPS) lines() uint64 {
	return uint64(len(f.bits)) / f.geom.words
}

// DumpMeta dumps the metadata of the underlying structure.
func (f *FiPS) DumpMeta(w io.Writer) {
	var b bytes.Buffer

	b.WriteString(fmt.Sprintf("FiPS: %d keys; %d levels; %d x %d-bit lines (%d-bit offsets)\n",
		f.n, f.levels, f.lines(), f.cfg.LineSize, f.cfg.OffsetSize))

	for i := 0; i < f.levels; i++ {
		sz := f.levelBases[i+1] - f.levelBases[i]
		b.WriteString(fmt.Sprintf("  %d: %d bits (%s)\n", i, sz, humansize(sz/8)))
	}
	if f.n > 0 {
		b.WriteString(fmt.Sprintf("  %4.2f bits/key\n", float64(f.Bits())/float64(f.n)))
	}
	w.Write(b.Bytes())
}
