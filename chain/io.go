package chain

import "github.com/flowbyte/stream/stream"

// ReadFrom drains up to n bytes (or to end-of-source when n < 0) from r
// into a new Chain. It reads through the exported stream.Reader surface
// only, so every block is a defensive copy (AppendCopy) rather than an
// adopted slice of r's own buffer: r doesn't expose its buffer across
// the package boundary, so there is nothing to steal here. A source
// that wants the zero-copy AppendBlock path has to build the Chain
// itself from blocks it already owns.
func ReadFrom(r stream.Reader, n int64) (*Chain, bool) {
	c := &Chain{}
	unlimited := n < 0
	for unlimited || c.Size() < n {
		want := 1 << 16
		if !unlimited {
			remaining := n - c.Size()
			if remaining < int64(want) {
				want = int(remaining)
			}
		}
		if r.Available() == 0 {
			if !r.Pull(1, want) {
				return c, r.Status() == nil
			}
		}
		block := takeAvailable(r, want)
		if len(block) == 0 {
			continue
		}
		c.AppendCopy(block)
	}
	return c, true
}

// takeAvailable is implemented via the exported stream.Reader surface:
// it reads up to want bytes that are already buffered without issuing a
// slow-path call, by using Read against a right-sized scratch buffer.
func takeAvailable(r stream.Reader, want int) []byte {
	avail := r.Available()
	if avail > want {
		avail = want
	}
	if avail == 0 {
		return nil
	}
	buf := make([]byte, avail)
	n, _ := r.Read(buf)
	return buf[:n]
}

// WriteChain writes every block of c to w in order, matching Writer's
// append semantics for byte-container types.
func WriteChain(w stream.Writer, c *Chain) (int64, bool) {
	var total int64
	ok := true
	c.ForEachBlock(func(block []byte) bool {
		n, err := w.Write(block)
		total += int64(n)
		if err != nil {
			ok = false
			return false
		}
		return true
	})
	return total, ok
}
