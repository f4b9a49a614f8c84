package fdsource_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowbyte/stream/fdsource"
	"github.com/flowbyte/stream/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRegularFileSupportsRandomAccessAndSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regular.bin")
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src, err := fdsource.Open(path, fdsource.Options{})
	require.NoError(t, err)
	defer src.Close()

	assert.True(t, src.SupportsRandomAccess())
	sz, ok := src.Size()
	require.True(t, ok)
	assert.Equal(t, int64(100), sz)
}

func TestOpenDevNullDoesNotSupportRandomAccess(t *testing.T) {
	src, err := fdsource.Open(os.DevNull, fdsource.Options{})
	require.NoError(t, err)
	defer src.Close()

	assert.False(t, src.SupportsRandomAccess())
}

func TestSourceReadsWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.txt")
	want := "the quick brown fox jumps over the lazy dog"
	require.NoError(t, os.WriteFile(path, []byte(want), 0o644))

	src, err := fdsource.Open(path, fdsource.Options{})
	require.NoError(t, err)
	defer src.Close()

	buf := make([]byte, len(want))
	n, err := readFull(src, buf)
	require.NoError(t, err)
	assert.Equal(t, want, string(buf[:n]))
}

func readFull(r interface {
	Read([]byte) (int, error)
}, dest []byte) (int, error) {
	total := 0
	for total < len(dest) {
		n, err := r.Read(dest[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

func TestSourceSeekAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seekable.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	src, err := fdsource.Open(path, fdsource.Options{})
	require.NoError(t, err)
	defer src.Close()

	require.True(t, src.Seek(5))
	buf := make([]byte, 5)
	n, err := readFull(src, buf)
	require.NoError(t, err)
	assert.Equal(t, "56789", string(buf[:n]))
}

func TestSourceIndependentPositionDoesNotShareCursor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "indep.txt")
	require.NoError(t, os.WriteFile(path, []byte("abcdefghij"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	posA := int64(0)
	a, err := fdsource.NewFromFile(f, stream.Borrowed, fdsource.Options{IndependentPos: &posA})
	require.NoError(t, err)

	posB := int64(5)
	b, err := fdsource.NewFromFile(f, stream.Borrowed, fdsource.Options{IndependentPos: &posB})
	require.NoError(t, err)

	bufA := make([]byte, 3)
	n, err := readFull(a, bufA)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(bufA[:n]))

	bufB := make([]byte, 3)
	n, err = readFull(b, bufB)
	require.NoError(t, err)
	assert.Equal(t, "fgh", string(bufB[:n]))
}

func TestCreateSinkWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	sink, err := fdsource.CreateSink(path, fdsource.SinkOptions{})
	require.NoError(t, err)

	n, err := sink.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, sink.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestSinkTruncate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trunc.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	require.NoError(t, err)
	sink, err := fdsource.NewSinkFromFile(f, stream.Owned, fdsource.SinkOptions{})
	require.NoError(t, err)

	require.True(t, sink.SupportsTruncate())
	require.True(t, sink.Truncate(4))
	require.NoError(t, sink.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(got))
}
