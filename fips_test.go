// fips_test.go -- test suite for the FiPS construction & query paths
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
	"errors"
	"math/rand"
	"testing"
)

// verifyPerfect checks that 'f' maps every key to a distinct value in
// [0, len(keys)).
func verifyPerfect(t *testing.T, f *FiPS, keys []uint64) {
	assert := newAsserter(t)

	kmap := make(map[uint64]uint64, len(keys))
	for i, k := range keys {
		j, ok := f.Find(k)
		assert(ok, "can't find key[%d] %#x", i, k)
		assert(j < uint64(len(keys)), "key %d <%#x> mapping %d out-of-bounds", i, k, j)

		x, ok := kmap[j]
		assert(!ok, "index %d already mapped to key %#x", j, x)

		kmap[j] = k
	}
}

func TestFiPSSimple(t *testing.T) {
	assert := newAsserter(t)

	b, err := NewBuilder(Config{})
	assert(err == nil, "builder failed: %s", err)

	for i, s := range keyw {
		err = b.AddString(s)
		assert(err == nil, "can't add [%d] %s: %s", i, s, err)
	}

	f, err := b.Freeze()
	assert(err == nil, "can't freeze: %s", err)
	assert(f.Len() == len(keyw), "len: exp %d, saw %d", len(keyw), f.Len())
	assert(f.Levels() >= 1, "levels: exp >= 1, saw %d", f.Levels())

	kmap := make(map[uint64]string)
	for i, s := range keyw {
		j, ok := f.FindString(s)
		assert(ok, "can't find key[%d] %s", i, s)
		assert(j < uint64(len(keyw)), "key %s mapping %d out-of-bounds", s, j)

		x, ok := kmap[j]
		assert(!ok, "index %d already mapped to %s", j, x)

		kmap[j] = s
	}
}

func TestFiPSStrings(t *testing.T) {
	assert := newAsserter(t)

	words := []string{"alpha", "beta", "gamma"}
	f, err := NewFromStrings(words, Config{})
	assert(err == nil, "construction failed: %s", err)

	seen := make(map[uint64]bool)
	for _, s := range words {
		j, ok := f.FindString(s)
		assert(ok, "can't find %s", s)
		assert(j < 3, "%s mapped to %d", s, j)
		assert(!seen[j], "%s collides at %d", s, j)
		seen[j] = true
	}
}

func TestFiPSTiny(t *testing.T) {
	assert := newAsserter(t)

	keys := []uint64{7, 11, 13}
	f, err := New(append([]uint64(nil), keys...), Config{})
	assert(err == nil, "construction failed: %s", err)
	assert(f.Levels() >= 1, "levels: saw %d", f.Levels())

	verifyPerfect(t, f, keys)
}

func TestFiPSAllConfigs(t *testing.T) {
	keys := testKeys(5000, 0xfeedface)

	for _, cfg := range testConfigs() {
		f, err := New(append([]uint64(nil), keys...), cfg)
		if err != nil {
			t.Fatalf("%d/%d: construction failed: %s", cfg.LineSize, cfg.OffsetSize, err)
		}
		verifyPerfect(t, f, keys)
		verifyLayout(t, f)
	}
}

// verifyLayout checks the structural invariants: strictly increasing
// level bases on line boundaries, per-line offsets counting set bits
// since the last upper-rank sample, and the total population matching
// the key count.
func verifyLayout(t *testing.T, f *FiPS) {
	assert := newAsserter(t)
	g := &f.geom

	assert(f.levelBases[0] == 0, "first base %d", f.levelBases[0])
	for i := 1; i < len(f.levelBases); i++ {
		d := f.levelBases[i] - f.levelBases[i-1]
		assert(f.levelBases[i] > f.levelBases[i-1], "bases not increasing at %d", i)
		assert(d%g.payload == 0, "level %d size %d not a line multiple", i-1, d)
	}

	var total, sinceSample uint64
	for i := uint64(0); i < f.lines(); i++ {
		if i%g.sampling == 0 {
			if !f.cfg.NoUpperRank {
				j := i / g.sampling
				assert(f.upperRank[j] == total, "sample %d: exp %d, saw %d", j, total, f.upperRank[j])
			}
			sinceSample = 0
		}

		line := f.bits[i*g.words : (i+1)*g.words]
		assert(g.offset(line) == sinceSample, "line %d: offset exp %d, saw %d",
			i, sinceSample, g.offset(line))

		p := g.popcount(line)
		total += p
		sinceSample += p
	}
	assert(total == uint64(f.Len()), "popcount %d != %d keys", total, f.Len())
}

func TestFiPSDeterminism(t *testing.T) {
	assert := newAsserter(t)

	keys := testKeys(20000, 0xabad1dea)
	shuffled := append([]uint64(nil), keys...)
	rng := rand.New(rand.NewSource(99))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	f1, err := New(append([]uint64(nil), keys...), Config{})
	assert(err == nil, "construction failed: %s", err)
	f2, err := New(shuffled, Config{})
	assert(err == nil, "construction failed: %s", err)

	var b1, b2 bytes.Buffer
	_, err = f1.MarshalBinary(&b1)
	assert(err == nil, "marshal failed: %s", err)
	_, err = f2.MarshalBinary(&b2)
	assert(err == nil, "marshal failed: %s", err)

	assert(bytes.Equal(b1.Bytes(), b2.Bytes()), "input order changed the image")
}

func TestFiPSEmpty(t *testing.T) {
	assert := newAsserter(t)

	f, err := New(nil, Config{})
	assert(err == nil, "construction failed: %s", err)
	assert(f.Len() == 0, "len %d", f.Len())
	assert(f.Levels() == 0, "levels %d", f.Levels())
	assert(f.Bits() > 0, "no fixed overhead")

	_, ok := f.Find(42)
	assert(!ok, "found a key in an empty set")

	var b bytes.Buffer
	_, err = f.MarshalBinary(&b)
	assert(err == nil, "marshal failed: %s", err)

	f2, err := UnmarshalFiPS(b.Bytes(), Config{})
	assert(err == nil, "unmarshal failed: %s", err)
	assert(f2.Len() == 0, "unmarshal len %d", f2.Len())
	_, ok = f2.Find(42)
	assert(!ok, "found a key in an empty set")
}

func TestFiPSSingle(t *testing.T) {
	assert := newAsserter(t)

	f, err := New([]uint64{0xdeadbeefbaadf00d}, Config{})
	assert(err == nil, "construction failed: %s", err)
	assert(f.Len() == 1, "len %d", f.Len())

	j, ok := f.Find(0xdeadbeefbaadf00d)
	assert(ok, "can't find the key")
	assert(j == 0, "exp 0, saw %d", j)
}

func TestFiPSLarge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large construction in short mode")
	}
	assert := newAsserter(t)

	n := 200000
	keys := testKeys(n, 0x0123456789abcdef)
	f, err := New(append([]uint64(nil), keys...), Config{})
	assert(err == nil, "construction failed: %s", err)

	verifyPerfect(t, f, keys)
	verifyLayout(t, f)

	bpe := float64(f.Bits()) / float64(n)
	assert(bpe < 3.5, "bits/key %4.2f too large", bpe)
}

func TestFiPSOffsetOverflow(t *testing.T) {
	assert := newAsserter(t)

	// ~200k bits of bitmap at gamma 2; far past what 16-bit offsets
	// can index on their own
	keys := testKeys(100000, 0xc0ffee)

	cfg := Config{LineSize: 256, OffsetSize: 16, NoUpperRank: true}
	_, err := New(append([]uint64(nil), keys...), cfg)
	assert(errors.Is(err, ErrOffsetOverflow), "exp ErrOffsetOverflow, saw %v", err)

	cfg.NoUpperRank = false
	f, err := New(append([]uint64(nil), keys...), cfg)
	assert(err == nil, "construction failed: %s", err)
	verifyPerfect(t, f, keys)
	verifyLayout(t, f)
}

func TestFiPSInvalidParams(t *testing.T) {
	assert := newAsserter(t)

	bad := []Config{
		{LineSize: 100},
		{LineSize: 2048},
		{OffsetSize: 8},
		{OffsetSize: 64},
		{Gamma: 0.5},
		{Gamma: 1.0},
	}
	for i, cfg := range bad {
		_, err := New([]uint64{1, 2, 3}, cfg)
		assert(errors.Is(err, ErrInvalidParams), "[%d] exp ErrInvalidParams, saw %v", i, err)

		_, err = NewBuilder(cfg)
		assert(errors.Is(err, ErrInvalidParams), "[%d] builder: exp ErrInvalidParams, saw %v", i, err)
	}
}

func TestBuilderFrozen(t *testing.T) {
	assert := newAsserter(t)

	b, err := NewBuilder(Config{})
	assert(err == nil, "builder failed: %s", err)

	for _, k := range testKeys(100, 7) {
		err = b.Add(k)
		assert(err == nil, "add failed: %s", err)
	}

	_, err = b.Freeze()
	assert(err == nil, "freeze failed: %s", err)

	err = b.Add(1)
	assert(errors.Is(err, ErrFrozen), "exp ErrFrozen, saw %v", err)
	_, err = b.Freeze()
	assert(errors.Is(err, ErrFrozen), "exp ErrFrozen, saw %v", err)
}

func TestRadixSort(t *testing.T) {
	assert := newAsserter(t)
	rng := rand.New(rand.NewSource(17))

	for _, n := range []int{0, 1, 100, 255, 256, 10000} {
		keys := make([]uint64, n)
		for i := range keys {
			keys[i] = rng.Uint64()
		}
		radixSort(keys)
		for i := 1; i < n; i++ {
			assert(keys[i-1] <= keys[i], "n=%d: out of order at %d", n, i)
		}
	}

	// keys sharing high bytes exercise the skip path
	keys := make([]uint64, 4096)
	for i := range keys {
		keys[i] = uint64(len(keys) - i)
	}
	radixSort(keys)
	for i := range keys {
		assert(keys[i] == uint64(i+1), "skip path: exp %d, saw %d", i+1, keys[i])
	}
}

func BenchmarkFind(b *testing.B) {
	keys := testKeys(1000000, 0xbe9c4a11)
	f, err := New(append([]uint64(nil), keys...), Config{})
	if err != nil {
		b.Fatalf("construction failed: %s", err)
	}

	b.ResetTimer()
	var sink uint64
	for i := 0; i < b.N; i++ {
		r, _ := f.Find(keys[i%len(keys)])
		sink += r
	}
	_ = sink
}
