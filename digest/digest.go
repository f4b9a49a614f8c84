// Package digest implements the Digester contract and
// the DigestingReader/DigestingWriter adapters that tee a byte stream
// through one (or, via MultiDigester, several) incremental hash.
//
// Concrete algorithms wrap the standard library's hash/crc32 and
// hash/adler32: this module treats "concrete hash algorithm
// implementations" as out of scope beyond wiring up the standard ones,
// and hash/crc32's Castagnoli table already dispatches to the SSE4.2/ARM64
// CRC32 instructions when available, which is the "hardware when
// available" behavior — see DESIGN.md.
package digest

import (
	"hash"
	"hash/adler32"
	"hash/crc32"
)

// Digester is an I/O-free incremental accumulator. Write never fails;
// Digest may be called at any time and reflects every byte written so
// far. The constructors below return pointers, so copies of a Digester
// value share one state.
type Digester interface {
	Write(p []byte)
	Digest() uint32
	// Reset clears accumulated state back to the algorithm's initial value.
	Reset()
}

type hashDigester struct {
	h hash.Hash32
}

func (d *hashDigester) Write(p []byte) { _, _ = d.h.Write(p) }
func (d *hashDigester) Digest() uint32 { return d.h.Sum32() }
func (d *hashDigester) Reset()         { d.h.Reset() }

// NewCRC32C returns a Digester computing CRC-32C (Castagnoli), using a
// hardware-accelerated table when the platform supports it.
func NewCRC32C() Digester { return &hashDigester{h: crc32.New(crc32.MakeTable(crc32.Castagnoli))} }

// NewCRC32 returns a Digester computing CRC-32 with the zlib (IEEE) polynomial.
func NewCRC32() Digester { return &hashDigester{h: crc32.NewIEEE()} }

// NewAdler32 returns a Digester computing Adler-32.
func NewAdler32() Digester { return &hashDigester{h: adler32.New()} }
