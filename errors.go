// errors.go - public errors exposed by fips
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
	"errors"
	"fmt"
)

func errShortWrite(who string, n int) error {
	return fmt.Errorf("%s: incomplete write; wrote %d bytes", who, n)
}

var (
	// ErrInvalidParams is returned for an unsupported parameter
	// combination: a line size that is not one of 64/128/256/512/1024,
	// an offset size other than 16 or 32, an offset size that doesn't
	// fit the line, or a gamma <= 1.0.
	ErrInvalidParams = errors.New("invalid FiPS parameters")

	// ErrOffsetOverflow is returned by the builder when the number of
	// set bits since the last upper-rank sample no longer fits the
	// per-line offset field and upper-rank sampling is disabled.
	// Enable the upper rank or use a wider offset.
	ErrOffsetOverflow = errors.New("line offset overflow; too many keys for offset size")

	// ErrMPHFail is returned when construction does not converge.
	// With distinct keys the peeling loop terminates after a handful
	// of levels; running off the level cap means the input contained
	// duplicate keys.
	ErrMPHFail = errors.New("failed to build MPH; duplicate keys in input?")

	// ErrFrozen is returned when attempting to add new keys to an already
	// frozen builder. It is also returned when trying to freeze a builder
	// that's already frozen.
	ErrFrozen = errors.New("builder already frozen")

	// ErrBadFormat is returned when unmarshaling a serialized FiPS
	// instance fails: tag mismatch, truncated stream or structurally
	// inconsistent sizes.
	ErrBadFormat = errors.New("bad or corrupt FiPS image")

	// ErrValueTooLarge is returned if the value-length is larger than 2^32-1 bytes
	ErrValueTooLarge = errors.New("value is larger than 2^32-1 bytes")

	// ErrExists is returned if a duplicate key is added to the DB
	ErrExists = errors.New("key exists in DB")

	// ErrNoKey is returned when a key cannot be found in the DB
	ErrNoKey = errors.New("No such key")

	// Header too small for unmarshalling
	ErrTooSmall = errors.New("not enough data to unmarshal")
)
