package zstdstream

import (
	"github.com/flowbyte/stream/internal/xerrors"
	"github.com/flowbyte/stream/pool"
	"github.com/flowbyte/stream/stream"
	"github.com/klauspost/compress/zstd"
)

// EncoderOptions configures an Encoder.
type EncoderOptions struct {
	Level         zstd.EncoderLevel
	Dictionary    *Dictionary
	BufferOptions stream.BufferOptions
}

// Encoder is the write-side mirror of Decoder: a stream.Writer that
// Zstd-compresses everything written to it before forwarding to inner.
// Not part of the distilled component table, but implied by "parser ->
// digester -> compressor -> file descriptor" and needed to produce
// round-trip test fixtures without an external zstd binary.
type Encoder struct {
	*stream.BufferedWriter
	inner stream.Writer
	owner stream.Owner
	opts  EncoderOptions

	zw     *zstd.Encoder
	handle pool.Handle[zstd.Encoder]
}

// NewEncoder constructs an Encoder writing compressed frames to inner.
func NewEncoder(inner stream.Writer, owner stream.Owner, opts EncoderOptions) (*Encoder, error) {
	e := &Encoder{inner: inner, owner: owner, opts: opts}
	if opts.Dictionary != nil {
		zw, err := zstd.NewWriter(inner, zstd.WithEncoderLevel(opts.Level), zstd.WithEncoderDict(opts.Dictionary.raw))
		if err != nil {
			return nil, xerrors.Annotate(xerrors.New(xerrors.Internal, "%v", err), "opening Zstd writer")
		}
		e.zw = zw
	} else {
		h, err := encoderPoolFor(opts.Level).Get()
		if err != nil {
			return nil, xerrors.Annotate(xerrors.New(xerrors.ResourceExhausted, "%v", err), "acquiring Zstd encoder context")
		}
		h.Value.Reset(inner)
		e.zw = h.Value
		e.handle = h
	}
	e.BufferedWriter = stream.NewBufferedWriter(e, 0, opts.BufferOptions)
	return e, nil
}

// WriteInternal feeds p to the Zstd encoder.
func (e *Encoder) WriteInternal(p []byte) bool {
	n, err := e.zw.Write(p)
	if err != nil {
		e.Fail(xerrors.Annotate(xerrors.New(xerrors.Internal, "%v", err), "compressing at uncompressed byte %d", e.Pos()))
		return false
	}
	if n != len(p) {
		e.Fail(xerrors.New(xerrors.Internal, "Zstd encoder wrote %d of %d bytes", n, len(p)))
		return false
	}
	return true
}

// FlushInternal writes any compressed output the Zstd encoder is holding
// into inner, then flushes inner with ft unless ft is FlushFromObject and
// inner is borrowed. The generic buffer flush has already happened by the
// time this is called.
func (e *Encoder) FlushInternal(ft stream.FlushType) bool {
	if err := e.zw.Flush(); err != nil {
		e.Fail(xerrors.Annotate(xerrors.New(xerrors.Internal, "%v", err), "flushing Zstd stream"))
		return false
	}
	if ft == stream.FlushFromObject && e.owner != stream.Owned {
		return true
	}
	return e.inner.Flush(ft)
}

// closeContext finalizes the Zstd frame (final block, and checksum if
// enabled) and releases the context, pooled or not.
func (e *Encoder) closeContext() error {
	if e.zw == nil {
		return nil
	}
	err := e.zw.Close()
	if e.handle.Value != nil {
		e.handle.Release()
	}
	e.zw = nil
	return err
}

// CloseInternal closes the Zstd frame, releases the context, then
// closes inner if owned.
func (e *Encoder) CloseInternal() error {
	closeErr := e.closeContext()
	if e.owner == stream.Owned {
		if err := e.inner.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}
