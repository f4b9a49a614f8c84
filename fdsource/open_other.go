//go:build !unix

package fdsource

import "os"

func openFile(name string, directIO bool) (*os.File, error) {
	// DirectIO has no portable equivalent outside unix; silently ignored,
	// targeting only current Linux/FreeBSD.
	return os.OpenFile(name, os.O_RDONLY, 0)
}
