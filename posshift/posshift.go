// Package posshift implements a position-shifting adapter: a thin
// wrapper exposing an inner stream whose logical position is the inner
// stream's position plus a constant base offset.
package posshift

import (
	"math"

	"github.com/flowbyte/stream/internal/xerrors"
	"github.com/flowbyte/stream/stream"
)

// Reader rebases inner's positions by +basePos.
type Reader struct {
	*stream.BufferedReader
	inner   stream.Reader
	basePos int64
	owner   stream.Owner
}

// NewReader wraps inner so that Pos() reports inner.Pos()+basePos.
func NewReader(inner stream.Reader, basePos int64, owner stream.Owner) *Reader {
	r := &Reader{inner: inner, basePos: basePos, owner: owner}
	r.BufferedReader = stream.NewBufferedReader(r, inner.Pos()+basePos, stream.DefaultBufferOptions())
	return r
}

// ReadInternal implements stream.ReaderHooks by delegating straight to
// inner: the buffer window is independent per layer, only the position
// arithmetic is shifted ("shared buffer pointers, synced on
// each crossing" is realized here as "inner keeps its own buffer; this
// layer keeps none beyond what BufferedReader already manages").
func (r *Reader) ReadInternal(min, max int, dest []byte) (int, bool) {
	n := 0
	for n < min {
		m, ok := pullInto(r.inner, dest[n:max])
		n += m
		if !ok {
			return n, false
		}
		if m == 0 {
			return n, false
		}
	}
	return n, true
}

func pullInto(inner stream.Reader, dest []byte) (int, bool) {
	if len(dest) == 0 {
		return 0, true
	}
	n, err := inner.Read(dest)
	return n, err == nil
}

// SeekInternal implements the optional seek hook. pos is a logical
// (shifted) position; seeking below basePos underflows.
func (r *Reader) SeekInternal(pos int64) bool {
	if pos < r.basePos {
		r.Fail(xerrors.New(xerrors.InvalidArgument, "seek underflow: position %d is below base %d", pos, r.basePos))
		return false
	}
	inner := pos - r.basePos
	if !r.inner.Seek(inner) {
		return false
	}
	return true
}

func (r *Reader) SupportsRewind() bool { return r.inner.SupportsRewind() }

// SizeInternal reports inner's size shifted by basePos, guarding against
// overflow.
func (r *Reader) SizeInternal() (int64, bool) {
	sz, ok := r.inner.Size()
	if !ok {
		return 0, false
	}
	if sz > math.MaxInt64-r.basePos {
		r.Fail(xerrors.New(xerrors.ResourceExhausted, "position shift overflow"))
		return 0, false
	}
	return sz + r.basePos, true
}

// NewReaderInternal spawns an independent shifted reader when inner supports it.
func (r *Reader) NewReaderInternal(pos int64) (stream.Reader, bool) {
	if pos < r.basePos {
		r.Fail(xerrors.New(xerrors.InvalidArgument, "seek underflow: position %d is below base %d", pos, r.basePos))
		return nil, false
	}
	inner, ok := r.inner.NewReader(pos - r.basePos)
	if !ok {
		return nil, false
	}
	return NewReader(inner, r.basePos, stream.Owned), true
}

// CloseInternal implements stream.ReaderHooks' optional closer hook.
func (r *Reader) CloseInternal() error {
	if r.owner == stream.Owned {
		return r.inner.Close()
	}
	return nil
}

// Writer rebases inner's positions by +basePos, mirroring Reader.
type Writer struct {
	*stream.BufferedWriter
	inner   stream.Writer
	basePos int64
	owner   stream.Owner
}

// NewWriter wraps inner so that Pos() reports inner.Pos()+basePos.
func NewWriter(inner stream.Writer, basePos int64, owner stream.Owner) *Writer {
	w := &Writer{inner: inner, basePos: basePos, owner: owner}
	w.BufferedWriter = stream.NewBufferedWriter(w, inner.Pos()+basePos, stream.DefaultBufferOptions())
	return w
}

// WriteInternal implements stream.WriterHooks by delegating to inner.
func (w *Writer) WriteInternal(p []byte) bool {
	total := 0
	for total < len(p) {
		n, err := w.inner.Write(p[total:])
		total += n
		if err != nil {
			w.Fail(xerrors.Annotate(err, "position-shifted write at byte %d", w.Pos()))
			return false
		}
		if n == 0 {
			w.Fail(xerrors.New(xerrors.Internal, "position-shifting writer: inner write made no progress"))
			return false
		}
	}
	return true
}

// FlushInternal implements the optional flusher hook. A FlushFromObject
// reaches inner only when this writer owns it.
func (w *Writer) FlushInternal(ft stream.FlushType) bool {
	if ft == stream.FlushFromObject && w.owner != stream.Owned {
		return true
	}
	return w.inner.Flush(ft)
}

// CloseInternal implements stream.WriterHooks' optional closer hook.
func (w *Writer) CloseInternal() error {
	if w.owner == stream.Owned {
		return w.inner.Close()
	}
	return nil
}
