package stream

import (
	"io"
	"math"
	"strconv"

	"github.com/flowbyte/stream/internal/xerrors"
)

// Writer is the push-style buffered byte sink contract,
// symmetric to Reader.
type Writer interface {
	io.Writer
	io.Closer

	// Push ensures Available() >= min bytes of writable room.
	Push(min, recommended int) bool

	Available() int
	Pos() int64

	WriteZeros(n int64) bool
	WriteChars(n int64, c byte) bool
	WriteFloat32(v float32) bool
	WriteFloat64(v float64) bool

	Flush(ft FlushType) bool

	// ReadMode returns a Reader reflecting bytes already written, for
	// writers that can expose their own output for reading.
	ReadMode(pos int64) (Reader, bool)

	SupportsReadMode() bool
	SupportsTruncate() bool
	PrefersCopying() bool

	OK() bool
	Closed() bool
	Status() error
}

// WriterHooks is the slow-path contract a concrete buffered sink
// implements: write all of p to the destination or fail. Implementations
// own any syscall-level retry needed, and must call StreamBase.Fail with
// an annotated error before returning false so Status() reflects the
// cause.
type WriterHooks interface {
	WriteInternal(p []byte) bool
}

type truncater interface {
	SupportsTruncate() bool
}

type copyPreferring interface {
	PrefersCopying() bool
}

type flusher interface {
	FlushInternal(ft FlushType) bool
}

type readModer interface {
	ReadModeInternal(pos int64) (Reader, bool)
}

type writerCloser interface {
	CloseInternal() error
}

// BufferedWriter is the default template-method implementation of
// Writer.
type BufferedWriter struct {
	StreamBase
	hooks WriterHooks
	opts  BufferOptions

	buf                  []byte
	start, cursor, limit int
	startPos             int64

	inCapabilityHook bool
}

// NewBufferedWriter constructs a writer around hooks with the given
// buffer sizing policy. startPos is the absolute destination position
// of the first byte written.
func NewBufferedWriter(hooks WriterHooks, startPos int64, opts BufferOptions) *BufferedWriter {
	return &BufferedWriter{hooks: hooks, opts: opts.withDefaults(), startPos: startPos}
}

func (w *BufferedWriter) Available() int { return w.limit - w.cursor }

func (w *BufferedWriter) Pos() int64 { return w.startPos + int64(w.cursor-w.start) }

// AdvancePos lets a hook that wrote directly to the destination, bypassing
// this buffer (e.g. a zero-copy transfer), reconcile Pos() afterward. The
// buffer must be empty (already flushed) when this is called.
func (w *BufferedWriter) AdvancePos(n int64) { w.startPos += n }

// Push implements the fast/slow path split for write-side room.
func (w *BufferedWriter) Push(min, recommended int) bool {
	if min < 0 {
		min = 0
	}
	if w.Available() >= min {
		return true
	}
	if !w.OK() {
		return false
	}
	if min == 0 {
		return true
	}
	return w.pushSlow(min, recommended)
}

func (w *BufferedWriter) pushSlow(min, recommended int) bool {
	if !w.flushBuffer() {
		return false
	}
	if recommended > w.opts.MaxBufferSize {
		recommended = w.opts.MaxBufferSize
	}
	need := min
	if recommended > need {
		need = recommended
	}
	size := w.opts.initialSize(need)
	if len(w.buf) >= size {
		w.buf = w.buf[:cap(w.buf)]
	} else {
		w.buf = make([]byte, size)
	}
	w.start, w.cursor, w.limit = 0, 0, len(w.buf)
	return w.Available() >= min
}

// flushBuffer pushes any buffered bytes down to the sink and resets the
// window to empty-at-front, advancing startPos.
func (w *BufferedWriter) flushBuffer() bool {
	if w.cursor == w.start {
		return true
	}
	if !w.hooks.WriteInternal(w.buf[w.start:w.cursor]) {
		return false
	}
	w.startPos += int64(w.cursor - w.start)
	w.start, w.cursor, w.limit = 0, 0, 0
	return true
}

// Write implements io.Writer atop Push, bypassing the buffer entirely
// for writes at least as large as the configured max buffer size.
func (w *BufferedWriter) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		remaining := p[total:]
		if w.Available() == 0 && len(remaining) >= w.opts.MaxBufferSize {
			if !w.flushBuffer() {
				return total, w.Status()
			}
			if !w.hooks.WriteInternal(remaining) {
				return total, w.Status()
			}
			total += len(remaining)
			w.startPos += int64(len(remaining))
			continue
		}
		if w.Available() == 0 {
			if !w.Push(1, len(remaining)) {
				return total, w.Status()
			}
		}
		n := copy(w.buf[w.cursor:w.limit], remaining)
		w.cursor += n
		total += n
	}
	return total, nil
}

// WriteZeros efficiently fills n zero bytes, memsetting across buffer
// boundaries rather than writing one byte at a time.
func (w *BufferedWriter) WriteZeros(n int64) bool { return w.fill(n, 0) }

// WriteChars fills n copies of c.
func (w *BufferedWriter) WriteChars(n int64, c byte) bool { return w.fill(n, c) }

func (w *BufferedWriter) fill(n int64, c byte) bool {
	if n < 0 {
		return false
	}
	for n > 0 {
		if w.Available() == 0 {
			want := n
			if want > 1<<20 {
				want = 1 << 20
			}
			if !w.Push(1, int(want)) {
				return false
			}
		}
		room := int64(w.Available())
		chunk := room
		if chunk > n {
			chunk = n
		}
		dst := w.buf[w.cursor : w.cursor+int(chunk)]
		for i := range dst {
			dst[i] = c
		}
		w.cursor += int(chunk)
		n -= chunk
	}
	return true
}

// WriteFloat32 writes a formatted, deterministic representation of v:
// negative NaN is normalized to positive NaN so the output never
// depends on an incoming NaN's sign bit.
func (w *BufferedWriter) WriteFloat32(v float32) bool {
	return w.writeFormattedFloat(float64(v), 32)
}

// WriteFloat64 is the float64 counterpart of WriteFloat32.
func (w *BufferedWriter) WriteFloat64(v float64) bool {
	return w.writeFormattedFloat(v, 64)
}

func (w *BufferedWriter) writeFormattedFloat(v float64, bits int) bool {
	if math.IsNaN(v) {
		v = math.Abs(v)
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	_, err := io.WriteString(w, s)
	return err == nil
}

// Flush pushes this layer's buffered bytes to its destination, then
// passes ft to the concrete sink's FlushInternal (flusher), if any. That
// hook decides how far the flush goes: FlushFromObject reaches an owned
// inner stream but not a borrowed one; stronger flush types may also
// sync (e.g. fsync for a file).
func (w *BufferedWriter) Flush(ft FlushType) bool {
	if !w.flushBuffer() {
		return false
	}
	if fl, ok := w.hooks.(flusher); ok {
		return fl.FlushInternal(ft)
	}
	return true
}

// ReadMode returns a Reader over already-written bytes, when supported.
func (w *BufferedWriter) ReadMode(pos int64) (Reader, bool) {
	rm, ok := w.hooks.(readModer)
	if !ok {
		return nil, false
	}
	if !w.flushBuffer() {
		return nil, false
	}
	return rm.ReadModeInternal(pos)
}

func (w *BufferedWriter) SupportsReadMode() bool {
	_, ok := w.hooks.(readModer)
	return ok
}

// SupportsTruncate asks the hooks when they implement truncater. A hooks
// type that embeds *BufferedWriter satisfies truncater through this very
// method; the inCapabilityHook flag makes that re-entrant call fall
// through to the default instead of recursing.
func (w *BufferedWriter) SupportsTruncate() bool {
	if t, ok := w.hooks.(truncater); ok && !w.inCapabilityHook {
		w.inCapabilityHook = true
		defer func() { w.inCapabilityHook = false }()
		return t.SupportsTruncate()
	}
	return false
}

// PrefersCopying guards against re-entry the same way as SupportsTruncate.
func (w *BufferedWriter) PrefersCopying() bool {
	if c, ok := w.hooks.(copyPreferring); ok && !w.inCapabilityHook {
		w.inCapabilityHook = true
		defer func() { w.inCapabilityHook = false }()
		return c.PrefersCopying()
	}
	return false
}

// Close flushes and marks the stream closed, then closes the underlying
// sink unless the hooks don't implement writerCloser (a borrowing layer).
func (w *BufferedWriter) Close() error {
	if w.Closed() {
		return w.Status()
	}
	if !w.flushBuffer() {
		w.Fail(xerrors.New(xerrors.Internal, "flush on close failed"))
	}
	err := w.MarkClosed()
	if c, ok := w.hooks.(writerCloser); ok {
		if cerr := c.CloseInternal(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
