package stream_test

import (
	"testing"

	"github.com/flowbyte/stream/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource is a minimal ReaderHooks/seeker/sizer implementation over an
// in-memory byte slice, used to exercise BufferedReader without pulling
// in fdsource.
type memSource struct {
	*stream.BufferedReader
	data []byte
	pos  int
}

func newMemSource(data []byte) *memSource {
	s := &memSource{data: data}
	s.BufferedReader = stream.NewBufferedReader(s, 0, stream.BufferOptions{MinBufferSize: 4, MaxBufferSize: 16})
	return s
}

func (s *memSource) ReadInternal(min, max int, dest []byte) (int, bool) {
	n := copy(dest[:max], s.data[s.pos:])
	s.pos += n
	return n, n >= min
}

func (s *memSource) SeekInternal(pos int64) bool {
	if pos < 0 || pos > int64(len(s.data)) {
		return false
	}
	s.pos = int(pos)
	return true
}

func (s *memSource) SizeInternal() (int64, bool) { return int64(len(s.data)), true }

type memSink struct {
	*stream.BufferedWriter
	out []byte
}

func newMemSink() *memSink {
	w := &memSink{}
	w.BufferedWriter = stream.NewBufferedWriter(w, 0, stream.BufferOptions{MinBufferSize: 4, MaxBufferSize: 16})
	return w
}

func (w *memSink) WriteInternal(p []byte) bool {
	w.out = append(w.out, p...)
	return true
}

func TestBufferedReaderReadsEverything(t *testing.T) {
	want := []byte("Hello, World! This spans more than one buffer fill.")
	r := newMemSource(want)

	got := make([]byte, len(want))
	n, err := readFull(r, got)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, want, got)
	assert.True(t, r.OK())
}

func readFull(r *memSource, dest []byte) (int, error) {
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

func TestBufferedReaderPullAvailable(t *testing.T) {
	r := newMemSource([]byte("abcdefgh"))
	require.True(t, r.Pull(1, 4))
	assert.GreaterOrEqual(t, r.Available(), 1)

	buf := make([]byte, r.Available())
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, 0, r.Available())
}

func TestBufferedReaderZeroLengthReadIsNoOp(t *testing.T) {
	r := newMemSource([]byte("xyz"))
	n, err := r.Read(nil)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), r.Pos())
}

func TestBufferedReaderSeekAndSize(t *testing.T) {
	r := newMemSource([]byte("0123456789"))
	sz, ok := r.Size()
	require.True(t, ok)
	assert.Equal(t, int64(10), sz)

	require.True(t, r.Seek(5))
	assert.Equal(t, int64(5), r.Pos())

	buf := make([]byte, 5)
	n, err := readFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "56789", string(buf))
}

func TestBufferedReaderCloseIdempotent(t *testing.T) {
	r := newMemSource([]byte("abc"))
	require.NoError(t, r.Close())
	assert.True(t, r.Closed())
	// Closing again must not panic or change status.
	require.NoError(t, r.Close())
}

func TestBufferedWriterFastAndSlowPath(t *testing.T) {
	w := newMemSink()
	n, err := w.Write([]byte("short"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	big := make([]byte, 64)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	n, err = w.Write(big)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)

	require.True(t, w.Flush(stream.FlushFromObject))
	assert.Equal(t, append([]byte("short"), big...), w.out)
}

func TestBufferedWriterZeroLengthWriteIsNoOp(t *testing.T) {
	w := newMemSink()
	n, err := w.Write(nil)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
	assert.Empty(t, w.out)
}

func TestBufferedWriterWriteZerosAndChars(t *testing.T) {
	w := newMemSink()
	require.True(t, w.WriteZeros(3))
	require.True(t, w.WriteChars(2, 'x'))
	require.True(t, w.Flush(stream.FlushFromObject))
	assert.Equal(t, []byte{0, 0, 0, 'x', 'x'}, w.out)
}

func TestBufferedWriterCloseIdempotent(t *testing.T) {
	w := newMemSink()
	require.NoError(t, w.Close())
	assert.True(t, w.Closed())
	require.NoError(t, w.Close())
}

func TestStreamBaseFailLatchesFirstError(t *testing.T) {
	var b stream.StreamBase
	assert.True(t, b.OK())
	first := assertErr(t, "first")
	b.Fail(first)
	b.Fail(assertErr(t, "second"))
	assert.Equal(t, first, b.Status())
	assert.False(t, b.OK())
}

type testError string

func (e testError) Error() string { return string(e) }

func assertErr(t *testing.T, msg string) error {
	t.Helper()
	return testError(msg)
}
