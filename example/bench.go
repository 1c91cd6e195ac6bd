// bench.go -- 'bench' command implementation
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

package main

import (
	"fmt"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ByteHamster/FiPS"
	flag "github.com/opencoff/pflag"
)

type benchCommand struct{}

func init() {
	m := benchCommand{}
	registerCommand("bench", &m)
}

func (m *benchCommand) run(args []string, opt *Option) (err error) {
	var nObjs, nQueries, lineSz, offSz string
	var gamma float64
	var noUpper bool

	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	fs.SetOutput(os.Stdout)
	fs.StringVarP(&nObjs, "numObjects", "n", "1000000", "Number of `objects` to construct with")
	fs.StringVarP(&nQueries, "numQueries", "q", "1000000", "Number of `queries` to measure")
	fs.StringVarP(&lineSz, "lineSize", "l", "256", "Size of a cache line in `bits`")
	fs.StringVarP(&offSz, "offsetSize", "o", "16", "Number of `bits` for offset")
	fs.Float64VarP(&gamma, "gamma", "g", 2.0, "Use `G` as the load factor")
	fs.BoolVarP(&noUpper, "no-upper-rank", "u", false, "Disable upper-rank sampling")
	fs.Usage = func() {
		fmt.Printf(`Usage: bench [options]

Constructs a FiPS function over pseudo-random 64-bit keys, verifies it
is a minimal perfect hash, measures query throughput and prints a
single RESULT line. Numeric options accept K/M/G suffixes.

Options:
`)
		fs.PrintDefaults()
		os.Exit(0)
	}

	err = fs.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}

	numObjects, err := parseSize(nObjs)
	if err != nil {
		return fmt.Errorf("bench: numObjects: %w", err)
	}
	numQueries, err := parseSize(nQueries)
	if err != nil {
		return fmt.Errorf("bench: numQueries: %w", err)
	}
	lineSize, err := parseSize(lineSz)
	if err != nil {
		return fmt.Errorf("bench: lineSize: %w", err)
	}
	offsetSize, err := parseSize(offSz)
	if err != nil {
		return fmt.Errorf("bench: offsetSize: %w", err)
	}

	cfg := fips.Config{
		Gamma:       gamma,
		LineSize:    uint32(lineSize),
		OffsetSize:  uint32(offsetSize),
		NoUpperRank: noUpper,
	}

	seed := uint64(time.Now().UnixMilli())
	opt.Printf("generating %d keys (seed: %d)\n", numObjects, seed)
	prng := newXorShift64(seed)
	keys := make([]uint64, numObjects)
	for i := range keys {
		keys[i] = prng.next()
	}

	// the constructor consumes its input; keep the original for queries
	work := make([]uint64, len(keys))
	copy(work, keys)

	opt.Printf("constructing\n")
	begin := time.Now()
	h, err := fips.New(work, cfg)
	if err != nil {
		return fmt.Errorf("bench: %w", err)
	}
	constructionMs := time.Since(begin).Milliseconds()

	opt.Printf("testing\n")
	taken := make([]bool, numObjects)
	for i, k := range keys {
		hash, ok := h.Find(k)
		if !ok || hash >= numObjects {
			return fmt.Errorf("bench: key %d out of range", i)
		}
		if taken[hash] {
			return fmt.Errorf("bench: collision by key %d", i)
		}
		taken[hash] = true
	}

	opt.Printf("preparing query plan\n")
	queryPlan := make([]uint64, 0, numQueries)
	for i := uint64(0); i < numQueries; i++ {
		queryPlan = append(queryPlan, keys[prng.bounded(numObjects)])
	}

	opt.Printf("querying\n")
	var sink uint64
	begin = time.Now()
	for _, k := range queryPlan {
		r, _ := h.Find(k)
		sink += r
	}
	queryMs := time.Since(begin).Milliseconds()
	opt.Printf("query checksum %d\n", sink)

	fmt.Printf("RESULT"+
		" method=FiPS"+
		" gamma=%v"+
		" lineSize=%d"+
		" offsetSize=%d"+
		" N=%d"+
		" numQueries=%d"+
		" queryTimeMilliseconds=%d"+
		" constructionTimeMilliseconds=%d"+
		" bitsPerElement=%v\n",
		gamma, lineSize, offsetSize, numObjects, numQueries,
		queryMs, constructionMs,
		float64(h.Bits())/float64(numObjects))

	return nil
}

// xorShift64 is a tiny deterministic PRNG for generating benchmark
// keys; not for anything security sensitive.
type xorShift64 struct {
	state uint64
}

func newXorShift64(seed uint64) *xorShift64 {
	if seed == 0 {
		seed = 1
	}
	return &xorShift64{state: seed}
}

func (x *xorShift64) next() uint64 {
	x.state ^= x.state >> 12
	x.state ^= x.state << 25
	x.state ^= x.state >> 27
	return x.state * 2685821657736338717
}

// bounded returns a value in [0, n).
func (x *xorShift64) bounded(n uint64) uint64 {
	hi, _ := bits.Mul64(x.next(), n)
	return hi
}

// parseSize parses a decimal integer with an optional K/M/G suffix
// (base 1024).
func parseSize(s string) (uint64, error) {
	var mult uint64 = 1

	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult = 1 << 10
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult = 1 << 20
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "g"):
		mult = 1 << 30
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}
