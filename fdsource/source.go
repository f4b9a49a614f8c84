// Package fdsource implements the file-descriptor byte source and sink
// positional vs. shared-position reads, random-access
// probing via seek, the /sys detection quirk, sequential-read hints,
// and zero-copy kernel-to-kernel transfer when both ends are file
// descriptors.
//
// Grounded on rclone's backend/local package: InitializePos mirrors
// Object.Open's offset/limit handling, the sequential hint and page-cache
// release mirror backend/local/fadvise_unix.go, and the optional direct
// I/O open flag mirrors backend/local/directio_unix.go.
package fdsource

import (
	"io"
	"os"

	"github.com/flowbyte/stream/internal/xerrors"
	"github.com/flowbyte/stream/stream"
)

// Options configures a Source: assumed filename/position overrides,
// independent positioning, growing-source handling, and buffer sizing.
type Options struct {
	// AssumedFilename overrides the name recorded for error annotation
	// when the caller already knows it (or adopted a bare fd).
	AssumedFilename string
	// AssumedPos, if set, skips positioning syscalls entirely and
	// disables random access. Mutually exclusive with IndependentPos.
	AssumedPos *int64
	// IndependentPos, if set, enables independent-position (pread) mode
	// starting at this offset. Mutually exclusive with AssumedPos.
	IndependentPos *int64
	// GrowingSource marks the source as one whose end may move forward
	// (e.g. a file being appended to).
	GrowingSource bool
	// BufferOptions tunes the buffered reader's growth policy.
	BufferOptions stream.BufferOptions
	// ReadAllHint, if true, issues the sequential-readahead hint
	// immediately (equivalent to calling SetReadAllHint(true) after open).
	ReadAllHint bool
	// DirectIO opens with O_DIRECT where supported. Off by default: it
	// bypasses the page cache, a poor default for a general-purpose source.
	DirectIO bool
}

// Source is a buffered reader over a file descriptor.
type Source struct {
	*stream.BufferedReader
	file     *os.File
	owner    stream.Owner
	filename string
	growing  bool
	bufOpts  stream.BufferOptions

	independent bool
	indepOffset int64

	randomAccess       bool
	randomAccessReason string

	fadv *fadvise
}

// Open opens name for reading and returns a Source owning the descriptor.
func Open(name string, opts Options) (*Source, error) {
	f, err := openFile(name, opts.DirectIO)
	if err != nil {
		return nil, xerrors.New(xerrors.OSError, "opening %s: %v", name, err)
	}
	if opts.AssumedFilename == "" {
		opts.AssumedFilename = name
	}
	return newSource(f, stream.Owned, opts.AssumedFilename, opts)
}

// NewFromFile adopts an already-open *os.File. owner controls whether
// Close also closes f.
func NewFromFile(f *os.File, owner stream.Owner, opts Options) (*Source, error) {
	name := opts.AssumedFilename
	if name == "" {
		name = f.Name()
	}
	return newSource(f, owner, name, opts)
}

func newSource(f *os.File, owner stream.Owner, filename string, opts Options) (*Source, error) {
	s := &Source{file: f, owner: owner, filename: filename, growing: opts.GrowingSource, bufOpts: opts.BufferOptions}
	startPos, size, sizeKnown, err := s.initializePos(opts)
	if err != nil {
		return nil, err
	}
	s.BufferedReader = stream.NewBufferedReader(s, startPos, opts.BufferOptions)
	if sizeKnown && !opts.GrowingSource {
		s.SetExactSize(size)
	}
	if opts.ReadAllHint {
		s.SetReadAllHint(true)
	}
	return s, nil
}

// initializePos selects a Source's starting position, random-access
// capability, and (when discoverable without extra syscalls) exact size
// from the combination of options given. It must not touch s.BufferedReader:
// it runs before that field is assigned, so any size discovered here is
// returned for the caller to apply via SetExactSize once construction
// has finished.
func (s *Source) initializePos(opts Options) (pos int64, size int64, sizeKnown bool, err error) {
	switch {
	case opts.AssumedPos != nil && opts.IndependentPos != nil:
		return 0, 0, false, xerrors.New(xerrors.InvalidArgument, "assumed_pos and independent_pos are mutually exclusive")

	case opts.AssumedPos != nil:
		s.randomAccess = false
		s.randomAccessReason = "assumed_pos supplied: no positioning syscalls issued"
		return *opts.AssumedPos, 0, false, nil

	case opts.IndependentPos != nil:
		s.independent = true
		s.indepOffset = *opts.IndependentPos
		s.randomAccess = true
		return *opts.IndependentPos, 0, false, nil

	default:
		cur, serr := s.file.Seek(0, io.SeekCurrent)
		if serr != nil {
			s.randomAccess = false
			s.randomAccessReason = serr.Error()
			return 0, 0, false, nil
		}
		if isSysPath(s.filename) {
			s.randomAccess = false
			s.randomAccessReason = "/sys paths mis-report seekability"
			return cur, 0, false, nil
		}
		if fi, ferr := s.file.Stat(); ferr == nil && fi.Mode()&os.ModeCharDevice != 0 {
			s.randomAccess = false
			s.randomAccessReason = "character devices accept lseek but are not randomly accessible"
			return cur, 0, false, nil
		}
		end, serr := s.file.Seek(0, io.SeekEnd)
		if serr != nil {
			s.randomAccess = false
			s.randomAccessReason = serr.Error()
			_, _ = s.file.Seek(cur, io.SeekStart)
			return cur, 0, false, nil
		}
		if _, serr := s.file.Seek(cur, io.SeekStart); serr != nil {
			return 0, 0, false, xerrors.New(xerrors.OSError, "seeking %s back to byte %d: %v", s.filename, cur, serr)
		}
		s.randomAccess = true
		return cur, end, true, nil
	}
}

// isSysPath reports the /sys/ quirk this module targets on Linux: files
// under /sys report a seekable size via lseek but random access doesn't
// actually work the way a regular file's does. Checking the prefix on
// every platform is harmless (no other OS uses this path for device
// files), so there's no build-tag split here.
func isSysPath(name string) bool {
	const prefix = "/sys/"
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}

// ReadInternal implements stream.ReaderHooks over read or pread,
// restarting on EINTR and capping each syscall at stream.MaxReadChunk.
func (s *Source) ReadInternal(min, max int, dest []byte) (int, bool) {
	n := 0
	for n < min {
		chunk := max - n
		if chunk > stream.MaxReadChunk {
			chunk = stream.MaxReadChunk
		}
		var m int
		var err error
		if s.independent {
			m, err = s.file.ReadAt(dest[n:n+chunk], s.indepOffset+int64(n))
		} else {
			m, err = s.file.Read(dest[n : n+chunk])
		}
		if m > 0 {
			n += m
			if s.fadv != nil {
				s.fadv.advance(m)
			}
		}
		if err != nil {
			if err == io.EOF {
				s.advanceIndependent(n)
				return n, false
			}
			if isEINTR(err) {
				continue
			}
			s.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "reading %s at byte %d", s.filename, s.Pos()))
			s.advanceIndependent(n)
			return n, false
		}
		if m == 0 {
			s.advanceIndependent(n)
			return n, false
		}
	}
	s.advanceIndependent(n)
	return n, true
}

func (s *Source) advanceIndependent(n int) {
	if s.independent {
		s.indepOffset += int64(n)
	}
}

// SeekInternal implements the optional seeker hook.
func (s *Source) SeekInternal(pos int64) bool {
	if !s.randomAccess {
		return s.FailUnimplemented("%s does not support random access: %s", s.filename, s.randomAccessReason)
	}
	if s.independent {
		s.indepOffset = pos
		return true
	}
	if _, err := s.file.Seek(pos, io.SeekStart); err != nil {
		s.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "seeking %s to byte %d", s.filename, pos))
		return false
	}
	return true
}

// SupportsRandomAccess overrides the embedded BufferedReader default
// (capability presence) with the per-instance flag InitializePos set.
func (s *Source) SupportsRandomAccess() bool { return s.randomAccess }

// SupportsRewind mirrors SupportsRandomAccess: this source can only seek
// backward the same way it seeks at all.
func (s *Source) SupportsRewind() bool { return s.randomAccess }

// NewReaderInternal spawns an independent-position reader sharing this
// source's *os.File without duplicating the descriptor: independent mode
// never touches the shared kernel offset, so concurrent pread-based
// readers over the same *os.File are safe.
func (s *Source) NewReaderInternal(pos int64) (stream.Reader, bool) {
	if !s.randomAccess {
		return nil, s.FailUnimplemented("%s does not support NewReader: not random access", s.filename)
	}
	child, err := newSource(s.file, stream.Borrowed, s.filename, Options{
		IndependentPos: &pos,
		GrowingSource:  s.growing,
		BufferOptions:  s.bufOpts,
	})
	if err != nil {
		s.Fail(err)
		return nil, false
	}
	if sz, ok := s.Size(); ok {
		child.SetExactSize(sz)
	}
	return child, true
}

// SetReadAllHint issues (or reverts) the sequential readahead hint. A
// no-op when the platform doesn't support it or the source isn't
// random-access.
func (s *Source) SetReadAllHint(all bool) {
	if !s.randomAccess {
		return
	}
	if all {
		if s.fadv == nil {
			s.fadv = newFadvise(s.file, s.Pos())
		}
		s.fadv.sequential()
		return
	}
	if s.fadv != nil {
		s.fadv.normal()
		s.fadv = nil
	}
}

// CloseInternal implements stream.ReaderHooks' optional closer hook.
func (s *Source) CloseInternal() error {
	if s.owner == stream.Owned {
		return s.file.Close()
	}
	return nil
}

// CopyToInternal attempts the zero-copy kernel-to-kernel path when w is
// backed by a file descriptor, falling back to the generic copy
// otherwise (tried=false tells BufferedReader.CopyTo to run its own
// buffer-relay loop).
func (s *Source) CopyToInternal(n int64, w stream.Writer) (int64, bool, bool) {
	sink, ok := w.(*Sink)
	if !ok {
		return 0, false, false
	}
	if !sink.Flush(stream.FlushFromObject) {
		return 0, false, true
	}
	copied, ok, tried := tryCopyFileRange(s, sink, n)
	if !tried {
		return 0, false, false
	}
	return copied, ok, true
}
