package digest_test

import (
	"testing"

	"github.com/flowbyte/stream/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32CKnownValue(t *testing.T) {
	d := digest.NewCRC32C()
	d.Write([]byte("Hello, World!"))
	assert.Equal(t, uint32(0x4BA3B6E5), d.Digest())
}

func TestCRC32CSplitWritesMatchSingleWrite(t *testing.T) {
	whole := digest.NewCRC32C()
	whole.Write([]byte("Hello, World!"))

	split := digest.NewCRC32C()
	split.Write([]byte("Hello, "))
	split.Write([]byte("Wor"))
	split.Write([]byte("ld!"))

	assert.Equal(t, whole.Digest(), split.Digest())
}

func TestAdler32KnownValue(t *testing.T) {
	d := digest.NewAdler32()
	d.Write([]byte("abc"))
	assert.Equal(t, uint32(0x024D0127), d.Digest())
}

func TestDigesterResetReturnsToInitialValue(t *testing.T) {
	d := digest.NewCRC32()
	initial := d.Digest()
	d.Write([]byte("some bytes"))
	require.NotEqual(t, initial, d.Digest())
	d.Reset()
	assert.Equal(t, initial, d.Digest())
}

func TestMultiDigesterTeesToEveryRegisteredAlgorithm(t *testing.T) {
	m := digest.NewMultiDigester(map[string]digest.Digester{
		"crc32c":  digest.NewCRC32C(),
		"adler32": digest.NewAdler32(),
	})
	m.Write([]byte("Hello, World!"))

	crc, ok := m.Digest("crc32c")
	require.True(t, ok)
	assert.Equal(t, uint32(0x4BA3B6E5), crc)

	_, ok = m.Digest("sha256")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"crc32c", "adler32"}, m.Names())
}

func TestMultiDigesterAsDigesterView(t *testing.T) {
	m := digest.NewMultiDigester(map[string]digest.Digester{
		"crc32c": digest.NewCRC32C(),
	})
	view := m.AsDigester("crc32c")
	view.Write([]byte("Hello, World!"))
	assert.Equal(t, uint32(0x4BA3B6E5), view.Digest())
}
