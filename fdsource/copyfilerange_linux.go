//go:build linux

// Grounded on rclone's use of golang.org/x/sys/unix for platform
// syscalls not covered by the stdlib (backend/local/fadvise_unix.go,
// backend/local/directio_unix.go): copy_file_range lets the kernel move
// data page-cache-to-page-cache, or offload entirely to the filesystem
// for reflink-capable volumes, without a user-space round trip.
package fdsource

import (
	"github.com/flowbyte/stream/internal/xerrors"
	"golang.org/x/sys/unix"
)

// tryCopyFileRange attempts to move up to n bytes (or until src reaches
// end of file, if n < 0) from src to dst entirely inside the kernel,
// starting at each side's Pos. The syscall always gets explicit offsets;
// a shared-position side has its kernel offset moved forward afterwards.
// tried is false when the first call fails before any byte moved (e.g.
// cross-filesystem, or unsupported by the file pair), in which case the
// caller falls back to a generic buffer relay; a failure after partial
// progress fails dst and reports tried=true.
func tryCopyFileRange(src *Source, dst *Sink, n int64) (copied int64, ok bool, tried bool) {
	remaining := n
	unbounded := n < 0

	srcOff := src.Pos()
	dstOff := dst.Pos()

	for unbounded || remaining > 0 {
		chunk := 1 << 20
		if !unbounded && int64(chunk) > remaining {
			chunk = int(remaining)
		}
		m, err := unix.CopyFileRange(int(src.file.Fd()), &srcOff, int(dst.file.Fd()), &dstOff, chunk, 0)
		if err != nil {
			if isEINTR(err) {
				continue
			}
			if copied > 0 {
				// Partial progress already made in the kernel; report what
				// happened rather than masking it as "never tried".
				dst.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "copy_file_range %s -> %s", src.filename, dst.filename))
				return copied, false, true
			}
			// Nothing copied yet: most likely cross-filesystem or
			// unsupported by one side's filesystem. Let the caller fall
			// back to the generic path.
			return 0, false, false
		}
		if m == 0 {
			break // source EOF
		}
		copied += int64(m)
		if !unbounded {
			remaining -= int64(m)
		}
	}

	if src.independent {
		src.indepOffset = srcOff
	} else if !advanceShared(src, copied) {
		return copied, false, true
	}
	if dst.independent {
		dst.indepOffset = dstOff
	} else if !advanceSharedSink(dst, copied) {
		return copied, false, true
	}
	dst.AdvancePos(copied)

	return copied, true, true
}

// advanceSharedSink mirrors advanceShared for the destination side: the
// kernel never moved dst's own shared file offset either.
func advanceSharedSink(dst *Sink, n int64) bool {
	if _, err := dst.file.Seek(dst.Pos()+n, 0); err != nil {
		dst.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "repositioning %s after copy_file_range", dst.filename))
		return false
	}
	return true
}

// advanceShared keeps a shared-offset source's kernel file position in
// sync after copy_file_range moved it out from under the io.Reader API,
// since copy_file_range always uses the explicit-offset form regardless
// of independent mode.
func advanceShared(src *Source, n int64) bool {
	if _, err := src.file.Seek(src.Pos()+n, 0); err != nil {
		src.Fail(xerrors.Annotate(xerrors.New(xerrors.OSError, "%v", err), "repositioning %s after copy_file_range", src.filename))
		return false
	}
	return true
}
