package zstdstream

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdFrameHeaderSizeMax mirrors ZSTD_FRAMEHEADERSIZE_MAX: the largest a
// Zstd frame header can be (magic + descriptor + window + dictionary ID
// + content size field).
const zstdFrameHeaderSizeMax = 18

// probedHeader is the outcome of peeking a frame header prefix.
type probedHeader struct {
	prefix    []byte
	size      int64
	sizeKnown bool
	skippable bool
}

// probeHeader reads up to zstdFrameHeaderSizeMax bytes from r (which
// consumes them) and decodes a Zstd frame header prefix from them. The
// consumed bytes are returned in .prefix so the caller can hand them
// back to the real decoder via an io.MultiReader, since Header.Decode
// is non-destructive only on the peeked slice, not on r itself.
//
// A read short of a full header, or a header that fails to parse, is
// not itself an error here: it just leaves size unknown, consistent
// with spec's "failure to probe leaves size unknown". The real decoder
// surfaces any genuine corruption once it reads the same bytes.
func probeHeader(r io.Reader) (probedHeader, error) {
	buf := make([]byte, zstdFrameHeaderSizeMax)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return probedHeader{}, err
	}
	buf = buf[:n]

	var hdr zstd.Header
	if decErr := hdr.Decode(buf); decErr == nil {
		if hdr.Skippable {
			return probedHeader{prefix: buf, skippable: true}, nil
		}
		if hdr.HasFCS {
			return probedHeader{prefix: buf, size: int64(hdr.FrameContentSize), sizeKnown: true}, nil
		}
	}
	return probedHeader{prefix: buf}, nil
}

// rebind produces an io.Reader that first replays the probed prefix
// bytes, then continues from rest.
func (h probedHeader) rebind(rest io.Reader) io.Reader {
	if len(h.prefix) == 0 {
		return rest
	}
	return io.MultiReader(bytes.NewReader(h.prefix), rest)
}
