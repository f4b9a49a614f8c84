//go:build linux

package fdsource

import "golang.org/x/sys/unix"

// directIOFlag returns O_DIRECT, grounded on rclone's
// backend/local/directio_unix.go (which, despite the filename, is
// linux-only: O_DIRECT is a Linux-specific open flag).
func directIOFlag() int { return unix.O_DIRECT }
