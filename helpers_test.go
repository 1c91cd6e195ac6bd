// helpers_test.go - helper routines for tests
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
	"fmt"
	"runtime"
	"testing"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if cond {
			return
		}

		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		}

		s := fmt.Sprintf(msg, args...)
		t.Fatalf("%s: %d: Assertion failed: %s\n", file, line, s)
	}
}

// testConfigs is every supported line-size/offset-size combination.
func testConfigs() []Config {
	var cfgs []Config
	for _, l := range []uint32{64, 128, 256, 512, 1024} {
		for _, o := range []uint32{16, 32} {
			cfgs = append(cfgs, Config{LineSize: l, OffsetSize: o})
		}
	}
	return cfgs
}

// testKeys returns 'n' distinct pseudo-random digests; remix is a
// bijection, so distinct seeds give distinct keys.
func testKeys(n int, seed uint64) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = remix(seed + uint64(i))
	}
	return keys
}

var keyw = []string{
	"absquatulate",
	"bumbershoot",
	"collywobbles",
	"donnybrook",
	"eigengrau",
	"flibbertigibbet",
	"gallimaufry",
	"hornswoggle",
	"ineffable",
	"jackanapes",
	"kerfuffle",
	"lollygag",
	"mackintosh",
	"nudibranch",
	"obstreperous",
	"persnickety",
	"quixotic",
	"rambunctious",
	"skulduggery",
	"tatterdemalion",
}
