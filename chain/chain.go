// Package chain implements the byte-container type that ReadFrom fills
// from a stream.Reader and WriteChain writes to a stream.Writer: an
// append-only rope
// of immutable byte blocks so a source that already holds a shared slice
// (e.g. a decompressor's stable output buffer, a digester's scratch
// space) can hand it off without copying.
package chain

// Chain is a sequence of immutable byte blocks, read and written in
// order. It is not safe for concurrent use.
type Chain struct {
	blocks [][]byte
	size   int64
}

// AppendBlock adopts b without copying: the caller must not mutate b
// afterward.
func (c *Chain) AppendBlock(b []byte) {
	if len(b) == 0 {
		return
	}
	c.blocks = append(c.blocks, b)
	c.size += int64(len(b))
}

// AppendCopy appends a private copy of b.
func (c *Chain) AppendCopy(b []byte) {
	if len(b) == 0 {
		return
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	c.AppendBlock(cp)
}

// Size returns the total number of bytes across all blocks.
func (c *Chain) Size() int64 { return c.size }

// Blocks returns the underlying blocks in order. Callers must treat them
// as read-only.
func (c *Chain) Blocks() [][]byte { return c.blocks }

// Bytes flattens the chain into a single contiguous slice. Prefer
// ForEachBlock when the destination can accept blocks directly (e.g. a
// vectored write), since Bytes always copies.
func (c *Chain) Bytes() []byte {
	out := make([]byte, 0, c.size)
	for _, b := range c.blocks {
		out = append(out, b...)
	}
	return out
}

// ForEachBlock calls fn with each block in order. Iteration stops early
// if fn returns false.
func (c *Chain) ForEachBlock(fn func(block []byte) bool) {
	for _, b := range c.blocks {
		if !fn(b) {
			return
		}
	}
}

// Reset discards all blocks, retaining the backing slice for reuse.
func (c *Chain) Reset() {
	c.blocks = c.blocks[:0]
	c.size = 0
}
