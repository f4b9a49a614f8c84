// Package zstdstream implements a Zstd decompression/compression stream
// layered on any stream.Reader/stream.Writer: frame-header probing,
// dictionary attachment, growing-source handling, uncompressed-size
// discovery, rewind through re-initialization, and pooled decompression
// contexts.
//
// Grounded on rclone's backend/compress package, which drives
// github.com/klauspost/compress/zstd the same way: zstd.NewReader over
// a chunked source for decode, zstd.NewWriter with a configurable
// EncoderLevel for encode.
package zstdstream

import (
	"math/bits"
	"sync"

	"github.com/flowbyte/stream/pool"
	"github.com/klauspost/compress/zstd"
)

// maxDecoderWindow caps the decoder window log at 30 (32-bit) or
// 31 (64-bit)".
var maxDecoderWindow = func() uint64 {
	if bits.UintSize == 32 {
		return 1 << 30
	}
	return 1 << 31
}()

// Dictionary is a shared, immutable prepared Zstd dictionary. Build one
// and pass it to many Decoders/Encoders rather than re-parsing the raw
// dictionary bytes per stream.
type Dictionary struct {
	raw []byte
}

// NewDictionary copies raw into an immutable Dictionary handle.
func NewDictionary(raw []byte) *Dictionary {
	return &Dictionary{raw: append([]byte(nil), raw...)}
}

// decoderPool recycles *zstd.Decoder contexts that were not given a
// per-stream dictionary.
// Dictionary-bound decoders bypass the pool entirely: klauspost's
// zstd.Decoder has no way to swap dictionaries on Reset, only the
// underlying io.Reader, so a pooled instance can never safely serve two
// different dictionaries.
var decoderPool = pool.New(8, newPooledDecoder, resetPooledDecoder)

func newPooledDecoder() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderMaxWindow(maxDecoderWindow))
}

func resetPooledDecoder(d *zstd.Decoder) {
	_ = d.Reset(nil)
}

// encoderPool mirrors decoderPool for the write side. Level is part of
// the pool key since, unlike dictionaries, WithEncoderLevel has no
// per-call override: a pooled encoder always compresses at the level it
// was constructed with.
var encoderPools = struct {
	mu    sync.Mutex
	pools map[zstd.EncoderLevel]*pool.Recycling[zstd.Encoder]
}{pools: map[zstd.EncoderLevel]*pool.Recycling[zstd.Encoder]{}}

func encoderPoolFor(level zstd.EncoderLevel) *pool.Recycling[zstd.Encoder] {
	encoderPools.mu.Lock()
	defer encoderPools.mu.Unlock()
	if p, ok := encoderPools.pools[level]; ok {
		return p
	}
	p := pool.New(8, func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	}, func(e *zstd.Encoder) {
		e.Reset(nil)
	})
	encoderPools.pools[level] = p
	return p
}
