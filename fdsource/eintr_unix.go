//go:build unix

package fdsource

import (
	"errors"
	"syscall"
)

// isEINTR reports whether err is (or wraps) EINTR, for
// "restart the syscall" policy.
func isEINTR(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
