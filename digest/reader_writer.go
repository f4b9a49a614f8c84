package digest

import (
	"io"

	"github.com/flowbyte/stream/internal/xerrors"
	"github.com/flowbyte/stream/stream"
)

// Reader wraps an inner stream.Reader, feeding every byte that transits
// to a Digester exactly once, in source order, regardless of whether
// the caller drives it through Read, Skip, or CopyTo (all of which
// bottom out in BufferedReader.Pull -> Reader.ReadInternal here).
//
// A failure on the inner layer does not retroactively taint the digest
// of bytes already produced: Digest() always reflects exactly the bytes
// that transited before the failure.
type Reader struct {
	*stream.BufferedReader
	inner stream.Reader
	d     Digester
	owner stream.Owner
}

// NewReader constructs a digesting reader over inner. owner controls
// whether Close also closes inner.
func NewReader(inner stream.Reader, d Digester, owner stream.Owner) *Reader {
	r := &Reader{inner: inner, d: d, owner: owner}
	r.BufferedReader = stream.NewBufferedReader(r, inner.Pos(), stream.DefaultBufferOptions())
	return r
}

// Digest returns the digest of every byte that has transited so far.
func (r *Reader) Digest() uint32 { return r.d.Digest() }

// ReadInternal implements stream.ReaderHooks.
func (r *Reader) ReadInternal(min, max int, dest []byte) (int, bool) {
	n := 0
	for n < min {
		m, err := r.inner.Read(dest[n:max])
		if m > 0 {
			r.d.Write(dest[n : n+m])
			n += m
		}
		if err != nil {
			if err != io.EOF {
				r.Fail(xerrors.Annotate(err, "digesting at byte %d", r.Pos()))
			}
			return n, false
		}
		if m == 0 {
			return n, false
		}
	}
	return n, true
}

// CloseInternal implements stream.ReaderHooks' optional closer hook.
func (r *Reader) CloseInternal() error {
	if r.owner == stream.Owned {
		return r.inner.Close()
	}
	return nil
}

// Writer wraps an inner stream.Writer, feeding every byte written to a
// Digester before forwarding it.
type Writer struct {
	*stream.BufferedWriter
	inner stream.Writer
	d     Digester
	owner stream.Owner
}

// NewWriter constructs a digesting writer over inner.
func NewWriter(inner stream.Writer, d Digester, owner stream.Owner) *Writer {
	w := &Writer{inner: inner, d: d, owner: owner}
	w.BufferedWriter = stream.NewBufferedWriter(w, inner.Pos(), stream.BufferOptions{MinBufferSize: 1 << 16, MaxBufferSize: 1 << 16})
	return w
}

// Digest returns the digest of every byte that has reached WriteInternal.
// Bytes still held in this writer's own buffer are not included until
// they are flushed to inner (by Flush, Close, or the buffer filling up).
func (w *Writer) Digest() uint32 { return w.d.Digest() }

// WriteInternal implements stream.WriterHooks.
func (w *Writer) WriteInternal(p []byte) bool {
	w.d.Write(p)
	total := 0
	for total < len(p) {
		n, err := w.inner.Write(p[total:])
		total += n
		if err != nil {
			w.Fail(xerrors.Annotate(err, "digesting at byte %d", w.Pos()))
			return false
		}
		if n == 0 {
			w.Fail(xerrors.New(xerrors.Internal, "digesting writer: inner write made no progress"))
			return false
		}
	}
	return true
}

// FlushInternal implements stream.Writer's optional flusher hook. A
// FlushFromObject reaches inner only when this writer owns it.
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
