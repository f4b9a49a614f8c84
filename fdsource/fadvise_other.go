//go:build !linux

package fdsource

import "os"

// fadvise is a no-op on platforms without POSIX_FADV_* (or where the
// pack's only grounding for this feature, rclone's linux-only
// fadvise_unix.go/readahead_linux.go, doesn't apply).
type fadvise struct{}

func newFadvise(f *os.File, startPos int64) *fadvise { return &fadvise{} }
func (a *fadvise) sequential()                       {}
func (a *fadvise) normal()                           {}
func (a *fadvise) advance(n int)                     {}
