//go:build unix

package fdsource

import "os"

func openFile(name string, directIO bool) (*os.File, error) {
	flag := os.O_RDONLY
	if directIO {
		flag |= directIOFlag()
	}
	return os.OpenFile(name, flag, 0)
}
