package fdsource

import (
	"io"
	"os"

	"github.com/flowbyte/stream/internal/xerrors"
	"github.com/flowbyte/stream/stream"
)

// Sink is a buffered writer over a file descriptor, the write-side
// mirror of Source: same positioning-mode rules, same zero-copy
// opportunity when the reading side is also a Source.
type Sink struct {
	*stream.BufferedWriter
	file     *os.File
	owner    stream.Owner
	filename string

	independent bool
	indepOffset int64

	canTruncate bool
}

// SinkOptions mirrors Options for the write side.
type SinkOptions struct {
	AssumedFilename string
	AssumedPos      *int64
	IndependentPos  *int64
	BufferOptions   stream.BufferOptions
}

// CreateSink creates (or truncates) name for writing.
func CreateSink(name string, opts SinkOptions) (*Sink, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, xerrors.New(xerrors.OSError, "creating %s: %v", name, err)
	}
	if opts.AssumedFilename == "" {
		opts.AssumedFilename = name
	}
	return newSink(f, stream.Owned, opts)
}

// NewSinkFromFile adopts an already-open *os.File for writing.
func NewSinkFromFile(f *os.File, owner stream.Owner, opts SinkOptions) (*Sink, error) {
	if opts.AssumedFilename == "" {
		opts.AssumedFilename = f.Name()
	}
	return newSink(f, owner, opts)
}

func newSink(f *os.File, owner stream.Owner, opts SinkOptions) (*Sink, error) {
	s := &Sink{file: f, owner: owner, filename: opts.AssumedFilename}
	var startPos int64
	switch {
	case opts.AssumedPos != nil && opts.IndependentPos != nil:
		return nil, xerrors.New(xerrors.InvalidArgument, "assumed_pos and independent_pos are mutually exclusive")
	case opts.AssumedPos != nil:
		startPos = *opts.AssumedPos
	case opts.IndependentPos != nil:
		s.independent = true
		s.indepOffset = *opts.IndependentPos
		startPos = *opts.IndependentPos
	default:
		if fi, err := f.Stat(); err == nil {
			s.canTruncate = fi.Mode().IsRegular()
		}
		if cur, err := f.Seek(0, io.SeekCurrent); err == nil {
			startPos = cur
		}
	}
	s.BufferedWriter = stream.NewBufferedWriter(s, startPos, opts.BufferOptions)
	return s, nil
}

// WriteInternal implements stream.WriterHooks over write or pwrite,
// restarting on EINTR.
func (s *Sink) WriteInternal(p []byte) bool {
	n := 0
	for n < len(p) {
		var m int
		var err error
		if s.independent {
			m, err = s.file.WriteAt(p[n:], s.indepOffset+int64(n))
		} else {
			m, err = s.file.Write(p[n:])
		}
		n += m
		if err != nil {
			if isEINTR(err) {
				continue
			}
			s.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "writing %s at byte %d", s.filename, s.Pos()))
			s.advanceIndependent(n)
			return false
		}
	}
	s.advanceIndependent(n)
	return true
}

func (s *Sink) advanceIndependent(n int) {
	if s.independent {
		s.indepOffset += int64(n)
	}
}

// FlushInternal issues fsync/fdatasync-strength durability for
// FlushFromMachine; FlushFromProcess is satisfied by the OS write call
// already having returned.
func (s *Sink) FlushInternal(ft stream.FlushType) bool {
	if ft < stream.FlushFromMachine {
		return true
	}
	if err := s.file.Sync(); err != nil {
		s.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "syncing %s", s.filename))
		return false
	}
	return true
}

// SupportsTruncate reports whether Truncate is meaningful for this sink
// (a regular file opened without an independent/assumed position override).
func (s *Sink) SupportsTruncate() bool { return s.canTruncate }

// Truncate truncates the underlying file to n bytes.
func (s *Sink) Truncate(n int64) bool {
	if !s.canTruncate {
		return s.FailUnimplemented("%s does not support truncate", s.filename)
	}
	if err := s.file.Truncate(n); err != nil {
		s.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "truncating %s to byte %d", s.filename, n))
		return false
	}
	return true
}

// ReadModeInternal exposes a reader over bytes already written.
func (s *Sink) ReadModeInternal(pos int64) (stream.Reader, bool) {
	p := pos
	src, err := NewFromFile(s.file, stream.Borrowed, Options{
		AssumedFilename: s.filename,
		IndependentPos:  &p,
	})
	if err != nil {
		s.Fail(err)
		return nil, false
	}
	return src, true
}

// CloseInternal implements stream.WriterHooks' optional closer hook.
func (s *Sink) CloseInternal() error {
	if s.owner == stream.Owned {
		return s.file.Close()
	}
	return nil
}
