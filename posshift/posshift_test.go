package posshift_test

import (
	"testing"

	"github.com/flowbyte/stream/posshift"
	"github.com/flowbyte/stream/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekableSource struct {
	*stream.BufferedReader
	data []byte
	pos  int
}

func newSeekableSource(data []byte) *seekableSource {
	s := &seekableSource{data: data}
	s.BufferedReader = stream.NewBufferedReader(s, 0, stream.BufferOptions{})
	return s
}

func (s *seekableSource) ReadInternal(min, max int, dest []byte) (int, bool) {
	n := copy(dest[:max], s.data[s.pos:])
	s.pos += n
	return n, n >= min
}

func (s *seekableSource) SeekInternal(pos int64) bool {
	s.pos = int(pos)
	return true
}

func (s *seekableSource) SizeInternal() (int64, bool) { return int64(len(s.data)), true }

func TestPosshiftReaderReportsShiftedPos(t *testing.T) {
	inner := newSeekableSource([]byte("0123456789"))
	r := posshift.NewReader(inner, 1000, stream.Owned)
	assert.Equal(t, int64(1000), r.Pos())
}

func TestPosshiftReaderSeekBelowBaseFails(t *testing.T) {
	inner := newSeekableSource([]byte("0123456789"))
	r := posshift.NewReader(inner, 1000, stream.Owned)
	assert.False(t, r.Seek(500))
	assert.False(t, r.OK())
}

func TestPosshiftReaderSeekAtBaseSucceeds(t *testing.T) {
	inner := newSeekableSource([]byte("0123456789"))
	r := posshift.NewReader(inner, 1000, stream.Owned)
	require.True(t, r.Seek(1000))
	assert.Equal(t, int64(1000), r.Pos())

	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "012", string(buf[:n]))
}

func TestPosshiftReaderSizeIsShifted(t *testing.T) {
	inner := newSeekableSource([]byte("0123456789"))
	r := posshift.NewReader(inner, 1000, stream.Owned)
	sz, ok := r.Size()
	require.True(t, ok)
	assert.Equal(t, int64(1010), sz)
}

func TestPosshiftReaderReadsThroughToInner(t *testing.T) {
	inner := newSeekableSource([]byte("hello world"))
	r := posshift.NewReader(inner, 500, stream.Owned)

	buf := make([]byte, 11)
	n, err := readAll(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func readAll(r *posshift.Reader, dest []byte) (int, error) {
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

type plainSink struct {
	*stream.BufferedWriter
	out []byte
}

func newPlainSink() *plainSink {
	w := &plainSink{}
	w.BufferedWriter = stream.NewBufferedWriter(w, 0, stream.BufferOptions{})
	return w
}

func (w *plainSink) WriteInternal(p []byte) bool {
	w.out = append(w.out, p...)
	return true
}

func TestPosshiftWriterReportsShiftedPosAndWritesThrough(t *testing.T) {
	inner := newPlainSink()
	w := posshift.NewWriter(inner, 2000, stream.Owned)
	assert.Equal(t, int64(2000), w.Pos())

	n, err := w.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.True(t, w.Flush(stream.FlushFromObject))
	assert.Equal(t, "payload", string(inner.out))
}
