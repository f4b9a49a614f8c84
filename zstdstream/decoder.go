package zstdstream

import (
	"io"

	"github.com/flowbyte/stream/internal/xerrors"
	"github.com/flowbyte/stream/pool"
	"github.com/flowbyte/stream/stream"
	"github.com/klauspost/compress/zstd"
)

// Options configures a Decoder: growing-source handling, an optional
// shared dictionary, and buffer sizing.
type Options struct {
	GrowingSource bool
	Dictionary    *Dictionary
	BufferOptions stream.BufferOptions

	// ComputeSizeByStreaming is an opt-in escape hatch: when the frame
	// header doesn't carry a content
	// size and GrowingSource is false, Size() normally fails
	// Unimplemented permanently. Setting this decodes the whole stream
	// once (via an independent reader, if the source supports one) the
	// first time Size() is called, to discover and cache the real
	// count. Off by default: it is surprising for a Size() call to pay
	// for a full decode.
	ComputeSizeByStreaming bool
}

// Decoder is a buffered Zstd decompression stream over an inner
// stream.Reader.
type Decoder struct {
	*stream.BufferedReader
	inner stream.Reader
	owner stream.Owner
	opts  Options

	zr     *zstd.Decoder
	handle pool.Handle[zstd.Decoder]

	initialCompressedPos int64
	truncated            bool
	sizeProbed           bool
}

// NewDecoder constructs a Decoder over inner, probing the frame header
// for an uncompressed size before returning.
func NewDecoder(inner stream.Reader, owner stream.Owner, opts Options) (*Decoder, error) {
	d := &Decoder{inner: inner, owner: owner, opts: opts, initialCompressedPos: inner.Pos()}
	d.BufferedReader = stream.NewBufferedReader(d, 0, opts.BufferOptions)
	if err := d.initContext(); err != nil {
		return nil, err
	}
	return d, nil
}

// initContext acquires a decompression context (pooled unless a
// dictionary is attached) bound to d.inner, and probes the frame header
// for an uncompressed size.
func (d *Decoder) initContext() error {
	hdr, err := probeHeader(d.inner)
	if err != nil {
		return xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "probing Zstd frame header")
	}
	bound := hdr.rebind(d.inner)

	if d.opts.Dictionary != nil {
		zr, err := zstd.NewReader(bound, zstd.WithDecoderMaxWindow(maxDecoderWindow), zstd.WithDecoderDicts(d.opts.Dictionary.raw))
		if err != nil {
			return xerrors.Annotate(xerrors.New(xerrors.DataLoss, "%v", err), "opening Zstd stream")
		}
		d.zr = zr
		d.handle = pool.Handle[zstd.Decoder]{}
	} else {
		h, err := decoderPool.Get()
		if err != nil {
			return xerrors.Annotate(xerrors.New(xerrors.ResourceExhausted, "%v", err), "acquiring Zstd decoder context")
		}
		if err := h.Value.Reset(bound); err != nil {
			h.Release()
			return xerrors.Annotate(xerrors.New(xerrors.DataLoss, "%v", err), "opening Zstd stream")
		}
		d.zr = h.Value
		d.handle = h
	}

	switch {
	case hdr.skippable:
		d.setSize(0)
	case hdr.sizeKnown:
		d.setSize(hdr.size)
	}
	return nil
}

func (d *Decoder) setSize(n int64) {
	d.sizeProbed = true
	d.SetExactSize(n)
}

func (d *Decoder) releaseContext() {
	if d.zr == nil {
		return
	}
	if d.handle.Value != nil {
		d.handle.Release()
	} else {
		d.zr.Close()
	}
	d.zr = nil
}

// ReadInternal drives the Zstd decompressor until at least min bytes
// are produced or the frame ends.
//
// There is no "stable output buffer" mode: zr.Read copies decoded bytes
// out of klauspost/compress/zstd's own block buffers into dest (this
// reader's buffer, not the caller's), and the loop returns as soon as at
// least min bytes have been produced, even when max could hold the rest
// of the frame.
func (d *Decoder) ReadInternal(min, max int, dest []byte) (int, bool) {
	if d.zr == nil {
		// Context already dropped at a prior frame end; nothing more to
		// produce without re-initialization (NewReader/Seek).
		return 0, false
	}
	n := 0
	for n < min {
		m, err := d.zr.Read(dest[n:max])
		if m > 0 {
			n += m
		}
		if err == nil {
			if n >= min {
				return n, true
			}
			continue
		}
		if err == io.EOF {
			d.releaseContext()
			return n, n >= min
		}
		if isTruncationError(err) {
			if d.opts.GrowingSource {
				d.truncated = true
				return n, false
			}
			d.Fail(xerrors.Annotate(xerrors.New(xerrors.InvalidArgument, "%v", d.truncationCause(err)), "Truncated Zstd-compressed stream"))
			return n, false
		}
		d.Fail(xerrors.Annotate(xerrors.New(xerrors.InvalidArgument, "ZSTD_decompressStream() failed: %v", err), "at uncompressed byte %d", d.Pos()))
		return n, false
	}
	return n, true
}

// truncationCause prefers the inner reader's own latched failure (the
// more specific root cause, e.g. a network read error) over the
// generic io.ErrUnexpectedEOF the Zstd decoder reports when it runs out
// of compressed input mid-frame.
func (d *Decoder) truncationCause(err error) error {
	if st := d.inner.Status(); st != nil {
		return st
	}
	return err
}

// isTruncationError reports whether err looks like "ran out of input
// mid-frame" rather than genuine corruption. klauspost/compress/zstd
// surfaces this as io.ErrUnexpectedEOF from the underlying reader.
func isTruncationError(err error) bool {
	return err == io.ErrUnexpectedEOF
}

// SeekInternal rewinds the source to initial_compressed_pos, rebuilds
// the decompression context, and discards decoded bytes up to pos.
func (d *Decoder) SeekInternal(pos int64) bool {
	if !d.SupportsRewind() {
		return d.FailUnimplemented("Zstd stream does not support rewind: inner source is not rewindable")
	}
	d.releaseContext()
	if !d.inner.Seek(d.initialCompressedPos) {
		d.Fail(xerrors.Annotate(d.inner.Status(), "rewinding Zstd stream"))
		return false
	}
	d.truncated = false
	if err := d.initContext(); err != nil {
		d.Fail(err)
		return false
	}
	scratch := make([]byte, 64*1024)
	remaining := pos
	for remaining > 0 {
		chunk := len(scratch)
		if int64(chunk) > remaining {
			chunk = int(remaining)
		}
		n, ok := d.readRaw(scratch[:chunk])
		remaining -= int64(n)
		if !ok {
			if d.OK() {
				d.Fail(xerrors.New(xerrors.DataLoss, "Zstd stream ended before reaching rewound position %d", pos))
			}
			return false
		}
	}
	return true
}

// readRaw pulls directly from the decompressor, bypassing the buffered
// layer's own cursor bookkeeping, for use during rewind discard where
// this reader's position fields are about to be reset wholesale by the
// caller anyway.
func (d *Decoder) readRaw(dest []byte) (int, bool) {
	if d.zr == nil {
		return 0, false
	}
	n, err := d.zr.Read(dest)
	if err != nil && err != io.EOF {
		if isTruncationError(err) {
			if d.opts.GrowingSource {
				return n, n > 0
			}
			d.Fail(xerrors.Annotate(xerrors.New(xerrors.InvalidArgument, "%v", d.truncationCause(err)), "Truncated Zstd-compressed stream"))
			return n, false
		}
		d.Fail(xerrors.New(xerrors.InvalidArgument, "ZSTD_decompressStream() failed: %v", err))
		return n, false
	}
	if err == io.EOF && n == 0 {
		return 0, false
	}
	return n, true
}

// Truncated reports whether the most recent read ran out of compressed
// input mid-frame while GrowingSource is true ("truncated
// observable internally").
func (d *Decoder) Truncated() bool { return d.truncated }

// SizeInternal implements the opt-in ComputeSizeByStreaming escape
// hatch: when the frame header didn't carry a content
// size, decode a fresh independent copy of the whole stream just to
// count its bytes, rather than leaving Size() permanently Unimplemented.
func (d *Decoder) SizeInternal() (int64, bool) {
	if !d.opts.ComputeSizeByStreaming || d.opts.GrowingSource {
		return 0, false
	}
	if !d.inner.SupportsNewReader() {
		return 0, false
	}
	childInner, ok := d.inner.NewReader(d.initialCompressedPos)
	if !ok {
		return 0, false
	}
	child, err := NewDecoder(childInner, stream.Owned, Options{BufferOptions: d.opts.BufferOptions})
	if err != nil {
		return 0, false
	}
	defer child.Close()
	n, ok := child.CopyTo(-1, newDiscardWriter())
	if !ok {
		return 0, false
	}
	return n, true
}

// discardWriter is a minimal stream.Writer that throws away everything
// written to it, used by SizeInternal's streaming size computation.
type discardWriter struct {
	*stream.BufferedWriter
}

func newDiscardWriter() *discardWriter {
	w := &discardWriter{}
	w.BufferedWriter = stream.NewBufferedWriter(w, 0, stream.BufferOptions{})
	return w
}

func (discardWriter) WriteInternal(p []byte) bool { return true }

// SupportsRewind overrides the embedded default (method presence) with
// whether the inner source can actually rewind.
func (d *Decoder) SupportsRewind() bool { return d.inner.SupportsRewind() }

// SupportsRandomAccess mirrors SupportsRewind: this layer's only form of
// "random access" is a full rewind-and-redecode.
func (d *Decoder) SupportsRandomAccess() bool { return d.inner.SupportsRewind() }

// NewReaderInternal spawns an independent Decoder over a fresh reader at
// initial_compressed_pos, then seeks it to pos.
func (d *Decoder) NewReaderInternal(pos int64) (stream.Reader, bool) {
	if !d.inner.SupportsNewReader() {
		return nil, d.FailUnimplemented("Zstd stream does not support NewReader: inner source does not")
	}
	childInner, ok := d.inner.NewReader(d.initialCompressedPos)
	if !ok {
		d.Fail(xerrors.Annotate(d.inner.Status(), "spawning Zstd reader"))
		return nil, false
	}
	child, err := NewDecoder(childInner, stream.Owned, d.opts)
	if err != nil {
		d.Fail(err)
		return nil, false
	}
	if !child.Seek(pos) {
		d.Fail(child.Status())
		return nil, false
	}
	return child, true
}

// CloseInternal releases the decompression context and, if owned,
// closes the inner reader.
func (d *Decoder) CloseInternal() error {
	d.releaseContext()
	if d.owner == stream.Owned {
		return d.inner.Close()
	}
	return nil
}
