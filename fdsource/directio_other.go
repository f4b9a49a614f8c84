//go:build unix && !linux

package fdsource

func directIOFlag() int { return 0 }
