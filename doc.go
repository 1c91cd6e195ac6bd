// doc.go - top level documentation
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

// Package fips implements FiPS - a minimal perfect hash function
// built on cache-line sized bitmaps with embedded rank metadata.
//
// Given a static set of N distinct keys, the constructed function maps
// each key to a unique integer in [0, N). The structure needs roughly
// 2 bits per key at the default load factor and answers a query with
// one cache line access per level; most keys resolve at level 0 or 1.
// Keys are 64-bit digests; arbitrary byte strings are digested with
// Hash64() first.
//
// Construction repeatedly hashes unresolved keys into a bit array:
// a key whose bit is uncontested at the current level is placed
// there, colliding keys carry over to the next (smaller) level. Each
// cache line stores a small offset field holding the number of set
// bits since the last upper-rank sample, so a query computes the
// final rank from a single line plus one sampled counter.
//
// fips also exposes a convenient way to serialize keys and values OR
// just keys into an on-disk single-file database. This serialized DB
// is useful in situations where reading from such a "constant" DB is
// much more frequent compared to updates to the DB. The primary user
// interface for that layer is via the 'DBWriter' and 'DBReader'
// objects; each key is a uint64 digest - most commonly obtained by
// hashing a user specific object with a good hash function.
package fips
