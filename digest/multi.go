package digest

// MultiDigester tees one Write to several Digesters at once, so a
// caller can verify a stream against more than one checksum without
// re-reading it. Grounded on rclone's fs/hash.MultiHasher, which hashes
// with every supported algorithm simultaneously during an upload.
type MultiDigester struct {
	digesters map[string]Digester
}

// NewMultiDigester builds a tee over the named digesters.
func NewMultiDigester(named map[string]Digester) *MultiDigester {
	m := &MultiDigester{digesters: make(map[string]Digester, len(named))}
	for name, d := range named {
		m.digesters[name] = d
	}
	return m
}

// Write feeds p to every wrapped digester.
func (m *MultiDigester) Write(p []byte) {
	for _, d := range m.digesters {
		d.Write(p)
	}
}

// Digest returns the named digester's current digest, and whether that
// name was registered.
func (m *MultiDigester) Digest(name string) (uint32, bool) {
	d, ok := m.digesters[name]
	if !ok {
		return 0, false
	}
	return d.Digest(), true
}

// Reset clears every wrapped digester back to its initial state.
func (m *MultiDigester) Reset() {
	for _, d := range m.digesters {
		d.Reset()
	}
}

// AsDigester adapts the tee to the single-valued Digester interface so
// it can drive a Reader/Writer, reporting the named digester's value.
func (m *MultiDigester) AsDigester(name string) Digester {
	return &multiView{m: m, name: name}
}

type multiView struct {
	m    *MultiDigester
	name string
}

func (v *multiView) Write(p []byte) { v.m.Write(p) }
func (v *multiView) Digest() uint32 {
	d, _ := v.m.Digest(v.name)
	return d
}
func (v *multiView) Reset() { v.m.Reset() }

// Names returns the registered digester names.
func (m *MultiDigester) Names() []string {
	names := make([]string, 0, len(m.digesters))
	for name := range m.digesters {
		names = append(names, name)
	}
	return names
}
