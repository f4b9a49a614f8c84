package stream

import (
	"io"

	"github.com/flowbyte/stream/internal/xerrors"
)

// Reader is the pull-style buffered byte source contract.
// Every chained layer (decompressor, digester, position-shifter) both
// consumes and implements this interface.
type Reader interface {
	io.Reader
	io.Closer

	// Pull guarantees Available() >= min on true. min == 1 is the common
	// case. On false the reader has either failed (see Status) or
	// reached end-of-source while still OK.
	Pull(min, recommended int) bool

	// Available is the number of bytes readable without a slow path.
	Available() int

	// Pos is the current absolute source position.
	Pos() int64

	// Skip advances Pos by n bytes, pulling as needed. False on
	// end-of-source or failure before n bytes were skipped.
	Skip(n int64) bool

	// Seek moves to an absolute position. Requires SupportsRandomAccess.
	Seek(pos int64) bool

	// Size returns the exact total size, if known.
	Size() (int64, bool)

	// NewReader produces an independent reader over the same source at
	// pos. Requires SupportsNewReader.
	NewReader(pos int64) (Reader, bool)

	// CopyTo transfers exactly n bytes (or to end-of-source if n < 0) to
	// w, returning bytes copied and whether the transfer completed
	// without failure.
	CopyTo(n int64, w Writer) (int64, bool)

	SupportsRandomAccess() bool
	SupportsRewind() bool
	SupportsNewReader() bool
	ToleratesReadingAhead() bool

	OK() bool
	Closed() bool
	Status() error
}

// ReaderHooks is the slow-path contract a concrete buffered source
// implements: write at least min and at most max bytes
// into dest, advance the reader's notion of limit_pos, and return false
// only on end-of-source or failure — never merely because fewer than
// max bytes were available. Implementations own any syscall-level retry
// (e.g. EINTR) needed to satisfy min.
type ReaderHooks interface {
	ReadInternal(min, max int, dest []byte) (n int, ok bool)
}

// Optional hook interfaces, type-asserted by BufferedReader to discover
// per-instance capabilities. A hooks value that implements none of these
// gets the conservative default (no random access, no independent
// reader, no known size).
type seeker interface {
	// SeekInternal seeks the underlying source to pos and reports success.
	SeekInternal(pos int64) bool
}

type rewinder interface {
	// SupportsRewind reports whether SeekInternal can move backward.
	SupportsRewind() bool
}

type sizer interface {
	SizeInternal() (int64, bool)
}

type readerSpawner interface {
	NewReaderInternal(pos int64) (Reader, bool)
}

type readerCloser interface {
	CloseInternal() error
}

type readAheadTolerant interface {
	ToleratesReadingAhead() bool
}

type copyToHook interface {
	// CopyToInternal attempts a specialized transfer (e.g. zero-copy);
	// tried reports whether it even tried (false means "use the generic path").
	CopyToInternal(n int64, w Writer) (copied int64, ok bool, tried bool)
}

// BufferedReader is the default template-method implementation of
// Reader: it manages the growable buffer and dispatches fast-path
// misses to ReadInternal on the concrete hooks.
type BufferedReader struct {
	StreamBase
	hooks ReaderHooks
	opts  BufferOptions

	buf                  []byte
	start, cursor, limit int
	startPos             int64

	sizeKnown bool
	exactSize int64

	inCapabilityHook bool
}

// NewBufferedReader constructs a reader around hooks with the given
// buffer sizing policy. startPos is the absolute position of byte 0.
func NewBufferedReader(hooks ReaderHooks, startPos int64, opts BufferOptions) *BufferedReader {
	return &BufferedReader{hooks: hooks, opts: opts.withDefaults(), startPos: startPos}
}

// SetExactSize lets a concrete source (e.g. a non-growing file, a Zstd
// frame header) record a known size once discovered.
func (r *BufferedReader) SetExactSize(n int64) {
	r.exactSize = n
	r.sizeKnown = true
}

// ClearExactSize forgets a previously recorded size, e.g. after a rewind
// that re-probes a not-yet-known frame header.
func (r *BufferedReader) ClearExactSize() {
	r.sizeKnown = false
	r.exactSize = 0
}

func (r *BufferedReader) Available() int { return r.limit - r.cursor }

func (r *BufferedReader) Pos() int64 { return r.startPos + int64(r.cursor-r.start) }

// LimitPos is the absolute position one past the last buffered byte.
func (r *BufferedReader) LimitPos() int64 { return r.startPos + int64(r.limit-r.start) }

// Pull implements the fast/slow path split: a fast path that only
// touches the buffer, and a slow path that calls down to ReadInternal.
func (r *BufferedReader) Pull(min, recommended int) bool {
	if min < 0 {
		min = 0
	}
	if r.Available() >= min {
		return true
	}
	if min == 0 {
		return true // zero-length Pull is a no-op, never allocates
	}
	if !r.OK() {
		return false
	}
	return r.pullSlow(min, recommended)
}

func (r *BufferedReader) pullSlow(min, recommended int) bool {
	r.compact()

	if recommended > r.opts.MaxBufferSize {
		recommended = r.opts.MaxBufferSize
	}
	need := min
	if recommended > need {
		need = recommended
	}
	if len(r.buf) == 0 {
		r.buf = make([]byte, r.opts.initialSize(need))
	} else if len(r.buf)-r.limit < need-r.Available() {
		newSize := r.opts.grownSize(len(r.buf), need)
		nb := make([]byte, newSize)
		copy(nb, r.buf[:r.limit])
		r.buf = nb
	}

	needed := min - r.Available()
	maxLen := len(r.buf) - r.limit
	if maxLen < needed {
		// Buffer couldn't grow enough (shouldn't normally happen given
		// grownSize above, but guards against a pathological opts value).
		nb := make([]byte, r.limit+needed)
		copy(nb, r.buf[:r.limit])
		r.buf = nb
		maxLen = needed
	}

	n, ok := r.hooks.ReadInternal(needed, maxLen, r.buf[r.limit:len(r.buf):len(r.buf)])
	r.limit += n
	if !ok {
		return r.OK() && r.Available() >= min
	}
	return true
}

// compact moves the unread window [cursor,limit) to the front of buf so
// subsequent reads have room to grow without unbounded buffer growth.
func (r *BufferedReader) compact() {
	if r.cursor == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.cursor:r.limit])
	r.startPos += int64(r.cursor)
	r.start = 0
	r.cursor = 0
	r.limit = n
}

// Read implements io.Reader atop Pull.
func (r *BufferedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	total := 0
	for total < len(p) {
		if r.Available() == 0 {
			if !r.Pull(1, len(p)-total) {
				if err := r.Status(); err != nil {
					return total, err
				}
				break
			}
		}
		n := copy(p[total:], r.buf[r.cursor:r.limit])
		r.cursor += n
		total += n
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// Skip advances past n bytes without copying them out.
func (r *BufferedReader) Skip(n int64) bool {
	if n < 0 {
		return false
	}
	for n > 0 {
		avail := int64(r.Available())
		if avail == 0 {
			want := n
			if want > 1<<30 {
				want = 1 << 30
			}
			if !r.Pull(1, int(want)) {
				return false
			}
			avail = int64(r.Available())
		}
		c := avail
		if c > n {
			c = n
		}
		r.cursor += int(c)
		n -= c
	}
	return true
}

// Seek moves to an absolute position, adjusting the cursor in-place when
// the target is already buffered, else delegating to SeekBehindBuffer
// after draining the buffer.
func (r *BufferedReader) Seek(pos int64) bool {
	if !r.OK() {
		return false
	}
	if pos < 0 {
		r.Fail(xerrors.New(xerrors.InvalidArgument, "seek to negative position %d", pos))
		return false
	}
	lo, hi := r.startPos, r.LimitPos()
	if pos >= lo && pos <= hi {
		r.cursor = r.start + int(pos-lo)
		return true
	}
	return r.seekBehindBuffer(pos)
}

func (r *BufferedReader) seekBehindBuffer(pos int64) bool {
	sk, ok := r.hooks.(seeker)
	if !ok {
		return r.FailUnimplemented("reader does not support random access")
	}
	if !sk.SeekInternal(pos) {
		return false
	}
	r.start, r.cursor, r.limit = 0, 0, 0
	r.startPos = pos
	return true
}

// Size returns the reader's exact size if known, either previously set
// via SetExactSize or discoverable from the hooks.
func (r *BufferedReader) Size() (int64, bool) {
	if r.sizeKnown {
		return r.exactSize, true
	}
	if sz, ok := r.hooks.(sizer); ok {
		if n, known := sz.SizeInternal(); known {
			r.SetExactSize(n)
			return n, true
		}
	}
	return 0, false
}

// NewReader spawns an independent reader over the same source at pos.
func (r *BufferedReader) NewReader(pos int64) (Reader, bool) {
	sp, ok := r.hooks.(readerSpawner)
	if !ok {
		return nil, false
	}
	return sp.NewReaderInternal(pos)
}

func (r *BufferedReader) SupportsRandomAccess() bool {
	_, ok := r.hooks.(seeker)
	return ok
}

// SupportsRewind asks the hooks when they implement rewinder. A hooks
// type that embeds *BufferedReader satisfies rewinder through this very
// method; the inCapabilityHook flag makes that re-entrant call fall
// through to the default instead of recursing.
func (r *BufferedReader) SupportsRewind() bool {
	if rw, ok := r.hooks.(rewinder); ok && !r.inCapabilityHook {
		r.inCapabilityHook = true
		defer func() { r.inCapabilityHook = false }()
		return rw.SupportsRewind()
	}
	return r.SupportsRandomAccess()
}

func (r *BufferedReader) SupportsNewReader() bool {
	_, ok := r.hooks.(readerSpawner)
	return ok
}

// ToleratesReadingAhead guards against re-entry the same way as
// SupportsRewind.
func (r *BufferedReader) ToleratesReadingAhead() bool {
	if t, ok := r.hooks.(readAheadTolerant); ok && !r.inCapabilityHook {
		r.inCapabilityHook = true
		defer func() { r.inCapabilityHook = false }()
		return t.ToleratesReadingAhead()
	}
	return true
}

// CopyTo transfers n bytes (or to end-of-source when n < 0) into w. A
// concrete source that implements copyToHook gets first refusal (e.g.
// fdsource's copy_file_range zero-copy path); otherwise this falls back
// to a generic buffer-relay loop.
func (r *BufferedReader) CopyTo(n int64, w Writer) (int64, bool) {
	c, ok := r.hooks.(copyToHook)
	if !ok {
		return r.copyToGeneric(n, w)
	}
	// The zero-copy hook moves bytes directly at the file-descriptor
	// level, bypassing this buffer entirely, so any bytes already
	// sitting in the buffer have to go out through the generic path
	// first or they'd be skipped.
	var buffered int64
	if r.Available() > 0 {
		want := n
		if want < 0 || int64(r.Available()) < want {
			want = int64(r.Available())
		}
		var ok2 bool
		buffered, ok2 = r.copyToGeneric(want, w)
		if !ok2 {
			return buffered, false
		}
		if n >= 0 {
			n -= buffered
		}
	}
	copied, done, tried := c.CopyToInternal(n, w)
	if !tried {
		rest, ok2 := r.copyToGeneric(n, w)
		return buffered + rest, ok2
	}
	r.startPos += copied
	return buffered + copied, done
}

func (r *BufferedReader) copyToGeneric(n int64, w Writer) (int64, bool) {
	var total int64
	unlimited := n < 0
	for unlimited || total < n {
		want := 1 << 16
		if !unlimited {
			remaining := n - total
			if remaining < int64(want) {
				want = int(remaining)
			}
		}
		if r.Available() == 0 {
			if !r.Pull(1, want) {
				if err := r.Status(); err != nil {
					return total, false
				}
				return total, unlimited // clean EOF is success for an unlimited copy
			}
		}
		chunk := r.buf[r.cursor:r.limit]
		if !unlimited && len(chunk) > int(n-total) {
			chunk = chunk[:n-total]
		}
		wn, err := w.Write(chunk)
		r.cursor += wn
		total += int64(wn)
		if err != nil {
			return total, false
		}
	}
	return total, true
}

// Close marks the stream closed and then calls the hooks' CloseInternal
// (readerCloser), if any; a borrowing layer's CloseInternal leaves the
// underlying source open.
func (r *BufferedReader) Close() error {
	if r.Closed() {
		return r.Status()
	}
	err := r.MarkClosed()
	if c, ok := r.hooks.(readerCloser); ok {
		if cerr := c.CloseInternal(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
