//go:build linux

// Grounded on rclone's backend/local/fadvise_unix.go: doubling the
// kernel's readahead window on SetReadAllHint(true), and periodically
// issuing FADV_DONTNEED behind the read cursor so a full sequential read
// of a large file doesn't evict the rest of the page cache.
package fdsource

import (
	"context"
	"os"

	"github.com/flowbyte/stream/internal/xlog"
	"golang.org/x/sys/unix"
)

const fadviseWindowPages = 32

type fadvise struct {
	f          *os.File
	windowSize int64
	lastPos    int64
	curPos     int64
}

func newFadvise(f *os.File, startPos int64) *fadvise {
	return &fadvise{
		f:          f,
		windowSize: int64(os.Getpagesize()) * fadviseWindowPages,
		lastPos:    startPos,
		curPos:     startPos,
	}
}

func (a *fadvise) sequential() {
	if err := unix.Fadvise(int(a.f.Fd()), a.curPos, 0, unix.FADV_SEQUENTIAL); err != nil {
		xlog.Debugf(context.Background(), "fadvise sequential failed on %s: %v", a.f.Name(), err)
	}
}

func (a *fadvise) normal() {
	a.freePages()
	if err := unix.Fadvise(int(a.f.Fd()), 0, 0, unix.FADV_NORMAL); err != nil {
		xlog.Debugf(context.Background(), "fadvise normal failed on %s: %v", a.f.Name(), err)
	}
}

// advance records n bytes consumed and releases pages once the trailing
// window grows large enough.
func (a *fadvise) advance(n int) {
	a.curPos += int64(n)
	if a.curPos >= a.lastPos+a.windowSize {
		a.freePages()
	}
}

func (a *fadvise) freePages() {
	if a.curPos <= a.lastPos {
		return
	}
	if err := unix.Fadvise(int(a.f.Fd()), a.lastPos, a.curPos-a.lastPos, unix.FADV_DONTNEED); err != nil {
		xlog.Debugf(context.Background(), "fadvise dontneed failed on %s: %v", a.f.Name(), err)
	}
	a.lastPos = a.curPos
}
