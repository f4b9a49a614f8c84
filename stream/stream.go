// Package stream defines the buffered-stream contract shared by every
// reader and writer in this module: cursor/buffer invariants, capability
// discovery, annotated status propagation, and the owning/borrowing
// handle that closes (or doesn't) an inner stream.
//
// Concrete sources and sinks (fdsource.Source, zstdstream.Decoder,
// digest.Reader, posshift.Reader, ...) embed *BufferedReader or
// *BufferedWriter and are handed to it as a ReaderHooks/WriterHooks
// implementation at construction. Optional behavior (seeking, sizing,
// spawning an independent reader, flushing, exposing a read-mode view)
// is discovered by type-asserting the hooks value against the matching
// optional interface below — this is the Go rendering of
// per-instance Supports*() capability predicates: they are plain
// methods, queried at runtime, never composed at the type level.
package stream

import "github.com/flowbyte/stream/internal/xerrors"

// State is a stream lifecycle state: open, closed-OK, failed, or closed
// after failing.
type State int

const (
	StateOpen State = iota
	StateClosedOK
	StateFailed
	StateClosedFailed
)

// StreamBase is the shared ok/closed/failed primitive embedded by every
// buffered reader and writer.
type StreamBase struct {
	state State
	err   error
}

// OK reports whether the stream is healthy: Open or Closed-OK.
func (b *StreamBase) OK() bool {
	return b.state == StateOpen || b.state == StateClosedOK
}

// Closed reports whether Close has already run (successfully or not).
func (b *StreamBase) Closed() bool {
	return b.state == StateClosedOK || b.state == StateClosedFailed
}

// Status returns the latched failure, or nil if the stream is healthy.
func (b *StreamBase) Status() error { return b.err }

// Fail latches the stream into the Failed state. Once failed, a stream
// never recovers: subsequent Fail calls are no-ops that return the
// original cause, preserving the bottommost error.
func (b *StreamBase) Fail(err error) error {
	if err == nil {
		return b.err
	}
	if b.state == StateOpen {
		b.state = StateFailed
		b.err = err
	}
	return b.err
}

// MarkClosed transitions Open->Closed-OK or Failed->Closed-Failed. It is
// idempotent: calling it again returns the already-latched status.
func (b *StreamBase) MarkClosed() error {
	switch b.state {
	case StateOpen:
		b.state = StateClosedOK
		return nil
	case StateFailed:
		b.state = StateClosedFailed
		return b.err
	default:
		return b.err
	}
}

// FailUnimplemented is a convenience for the common "capability absent"
// failure, returning false so call sites can `return b.FailUnimplemented(...)`.
func (b *StreamBase) FailUnimplemented(format string, args ...any) bool {
	b.Fail(xerrors.New(xerrors.Unimplemented, format, args...))
	return false
}

// Owner is the two-variant ownership handle:
// an owning holder closes its inner stream; a borrowing holder only
// syncs cursors and leaves the inner stream open.
type Owner int

const (
	// Borrowed means Close on the outer layer does not close the inner stream.
	Borrowed Owner = iota
	// Owned means Close on the outer layer closes the inner stream too.
	Owned
)

// FlushType distinguishes how durable a Flush must be.
type FlushType int

const (
	// FlushFromObject pushes this stream's buffered bytes into its
	// destination and flushes an owned inner stream the same way; a
	// borrowed inner stream is not flushed, since it is shared.
	FlushFromObject FlushType = iota
	// FlushFromProcess additionally ensures bytes are visible to other
	// processes (e.g. a file's kernel buffer).
	FlushFromProcess
	// FlushFromMachine additionally ensures bytes survive a machine crash
	// (e.g. fsync).
	FlushFromMachine
)
