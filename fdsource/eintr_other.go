//go:build !unix

package fdsource

func isEINTR(err error) bool { return false }
