package zstdstream_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/flowbyte/stream/internal/xerrors"
	"github.com/flowbyte/stream/stream"
	"github.com/flowbyte/stream/zstdstream"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReader struct {
	*stream.BufferedReader
	data []byte
	pos  int
}

func newMemReader(data []byte) *memReader {
	r := &memReader{data: data}
	r.BufferedReader = stream.NewBufferedReader(r, 0, stream.BufferOptions{})
	return r
}

func (r *memReader) ReadInternal(min, max int, dest []byte) (int, bool) {
	n := copy(dest[:max], r.data[r.pos:])
	r.pos += n
	return n, n >= min
}

func (r *memReader) SeekInternal(pos int64) bool {
	r.pos = int(pos)
	return true
}

func (r *memReader) SizeInternal() (int64, bool) { return int64(len(r.data)), true }

func (r *memReader) NewReaderInternal(pos int64) (stream.Reader, bool) {
	child := newMemReader(r.data)
	child.pos = int(pos)
	return child, true
}

// byteAtATimeReader never returns more than one byte per ReadInternal
// call regardless of max, simulating a slow or chunked network source.
type byteAtATimeReader struct {
	*stream.BufferedReader
	data []byte
	pos  int
}

func newByteAtATimeReader(data []byte) *byteAtATimeReader {
	r := &byteAtATimeReader{data: data}
	r.BufferedReader = stream.NewBufferedReader(r, 0, stream.BufferOptions{})
	return r
}

func (r *byteAtATimeReader) ReadInternal(min, max int, dest []byte) (int, bool) {
	if r.pos >= len(r.data) {
		return 0, false
	}
	dest[0] = r.data[r.pos]
	r.pos++
	return 1, true
}

type memWriter struct {
	*stream.BufferedWriter
	out []byte
}

func newMemWriter() *memWriter {
	w := &memWriter{}
	w.BufferedWriter = stream.NewBufferedWriter(w, 0, stream.BufferOptions{})
	return w
}

func (w *memWriter) WriteInternal(p []byte) bool {
	w.out = append(w.out, p...)
	return true
}

func rawCompress(t *testing.T, data []byte, dict []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var zw *zstd.Encoder
	var err error
	if dict != nil {
		zw, err = zstd.NewWriter(&buf, zstd.WithEncoderDict(dict))
	} else {
		zw, err = zstd.NewWriter(&buf)
	}
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readAllFrom(t *testing.T, r stream.Reader) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
	}
	return out
}

func TestEncoderDecoderRoundTrip(t *testing.T) {
	want := strings.Repeat("The quick brown fox ", 1000)
	out := newMemWriter()
	enc, err := zstdstream.NewEncoder(out, stream.Owned, zstdstream.EncoderOptions{Level: zstd.SpeedDefault})
	require.NoError(t, err)

	n, err := enc.Write([]byte(want))
	require.NoError(t, err)
	assert.Equal(t, len(want), n)
	require.NoError(t, enc.Close())

	inner := newMemReader(out.out)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{})
	require.NoError(t, err)
	defer dec.Close()

	got := readAllFrom(t, dec)
	assert.Equal(t, want, string(got))
	require.True(t, dec.OK())
}

func TestDecoderComputesSizeViaStreamingWhenEnabled(t *testing.T) {
	want := strings.Repeat("The quick brown fox ", 1000)
	compressed := rawCompress(t, []byte(want), nil)

	inner := newMemReader(compressed)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{ComputeSizeByStreaming: true})
	require.NoError(t, err)
	defer dec.Close()

	sz, ok := dec.Size()
	require.True(t, ok)
	assert.Equal(t, int64(len(want)), sz)

	// Size() must not have disturbed the decoder's own read position.
	got := readAllFrom(t, dec)
	assert.Equal(t, want, string(got))
}

func TestDecoderSizeUnknownWithoutStreamingOption(t *testing.T) {
	compressed := rawCompress(t, []byte("hello world"), nil)
	inner := newMemReader(compressed)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{})
	require.NoError(t, err)
	defer dec.Close()

	_, ok := dec.Size()
	assert.False(t, ok)
}

func TestDecoderTruncatedStreamUnderGrowingSource(t *testing.T) {
	want := strings.Repeat("The quick brown fox ", 1000)
	compressed := rawCompress(t, []byte(want), nil)
	truncated := compressed[:len(compressed)-8]

	inner := newMemReader(truncated)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{GrowingSource: true})
	require.NoError(t, err)
	defer dec.Close()

	_ = readAllFrom(t, dec)
	assert.True(t, dec.Truncated())
	assert.True(t, dec.OK())
}

func TestDecoderTruncatedStreamFailsWithoutGrowingSource(t *testing.T) {
	want := strings.Repeat("The quick brown fox ", 1000)
	compressed := rawCompress(t, []byte(want), nil)
	truncated := compressed[:len(compressed)-8]

	inner := newMemReader(truncated)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{GrowingSource: false})
	require.NoError(t, err)
	defer dec.Close()

	buf := make([]byte, len(want))
	for {
		_, err := dec.Read(buf)
		if err != nil {
			break
		}
	}
	assert.False(t, dec.OK())
	require.Error(t, dec.Status())
	assert.True(t, xerrors.Is(dec.Status(), xerrors.InvalidArgument))
	assert.Contains(t, dec.Status().Error(), "Truncated Zstd-compressed stream")
}

func TestDecoderHandlesSingleByteSource(t *testing.T) {
	want := "hello from a slow source"
	compressed := rawCompress(t, []byte(want), nil)

	inner := newByteAtATimeReader(compressed)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{})
	require.NoError(t, err)
	defer dec.Close()

	got := readAllFrom(t, dec)
	assert.Equal(t, want, string(got))
}

func TestDecoderSeekRewindsToStart(t *testing.T) {
	want := "abcdefghijklmnopqrstuvwxyz"
	compressed := rawCompress(t, []byte(want), nil)

	inner := newMemReader(compressed)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{})
	require.NoError(t, err)
	defer dec.Close()

	first := make([]byte, 5)
	n, err := dec.Read(first)
	require.NoError(t, err)
	assert.Equal(t, "abcde", string(first[:n]))

	require.True(t, dec.SupportsRewind())
	require.True(t, dec.Seek(0))

	got := readAllFrom(t, dec)
	assert.Equal(t, want, string(got))
}

func TestDecoderNewReaderSpawnsIndependentReader(t *testing.T) {
	want := "0123456789abcdefghij"
	compressed := rawCompress(t, []byte(want), nil)

	inner := newMemReader(compressed)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{})
	require.NoError(t, err)
	defer dec.Close()

	buf := make([]byte, 10)
	n, err := dec.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(buf[:n]))

	require.True(t, dec.SupportsNewReader())
	child, ok := dec.NewReader(0)
	require.True(t, ok)
	defer child.Close()

	got := readAllFrom(t, child)
	assert.Equal(t, want, string(got))

	// The parent's own position is unaffected by spawning a child.
	rest := readAllFrom(t, dec)
	assert.Equal(t, "abcdefghij", string(rest))
}

func TestEncoderWithDictionaryRoundTrips(t *testing.T) {
	dict := []byte(strings.Repeat("shared prefix material ", 20))
	want := "shared prefix material plus some unique tail content"

	out := newMemWriter()
	d := zstdstream.NewDictionary(dict)
	enc, err := zstdstream.NewEncoder(out, stream.Owned, zstdstream.EncoderOptions{Dictionary: d})
	require.NoError(t, err)

	_, err = enc.Write([]byte(want))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	inner := newMemReader(out.out)
	dec, err := zstdstream.NewDecoder(inner, stream.Owned, zstdstream.Options{Dictionary: d})
	require.NoError(t, err)
	defer dec.Close()

	got := readAllFrom(t, dec)
	assert.Equal(t, want, string(got))
}

func TestEncoderFlushMakesBytesVisibleBeforeClose(t *testing.T) {
	out := newMemWriter()
	enc, err := zstdstream.NewEncoder(out, stream.Owned, zstdstream.EncoderOptions{})
	require.NoError(t, err)

	_, err = enc.Write([]byte("flush me"))
	require.NoError(t, err)
	require.True(t, enc.Flush(stream.FlushFromProcess))
	assert.NotEmpty(t, out.out)

	require.NoError(t, enc.Close())
}
