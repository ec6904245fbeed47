package reactor

// ReadablePort is a read-only view of a port, valid only while the
// reaction that obtained it runs. Do not store it.
type ReadablePort[T any] struct {
	rc   *ReactionCtx
	port *Port[T]
}

// ReadPort returns a read-only view of p. The reaction must declare p as a
// trigger or use.
func ReadPort[T any](rc *ReactionCtx, p *Port[T]) ReadablePort[T] {
	rc.checkRead(p)
	return ReadablePort[T]{rc: rc, port: p}
}

// Get returns the value of the port at the current tag.
func (v ReadablePort[T]) Get() (T, bool) {
	v.rc.checkLive()
	return v.port.read(v.rc.tag)
}

// IsPresent reports whether the port has a value at the current tag.
func (v ReadablePort[T]) IsPresent() bool {
	_, ok := v.Get()
	return ok
}

// Name returns the name of the port.
func (v ReadablePort[T]) Name() string { return v.port.m.name }

// WritablePort is a write-only view of a port, valid only while the
// reaction that obtained it runs.
type WritablePort[T any] struct {
	rc   *ReactionCtx
	port *Port[T]
}

// WritePort returns a write-only view of p. The reaction must declare p as
// an effect.
func WritePort[T any](rc *ReactionCtx, p *Port[T]) WritablePort[T] {
	rc.checkWrite(p)
	return WritablePort[T]{rc: rc, port: p}
}

// Set writes v for the current tag. The last write of a tag wins.
func (v WritablePort[T]) Set(val T) {
	v.rc.checkLive()
	v.port.write(val)
	v.rc.wrote(v.port, v.port.m.label, val)
}

// Name returns the name of the port.
func (v WritablePort[T]) Name() string { return v.port.m.name }

// ReadablePortBank is a read-only view of a port bank.
type ReadablePortBank[T any] struct {
	rc   *ReactionCtx
	bank *PortBank[T]
}

// ReadBank returns a read-only view of b. The reaction must declare b as a
// trigger or use.
func ReadBank[T any](rc *ReactionCtx, b *PortBank[T]) ReadablePortBank[T] {
	rc.checkRead(b)
	return ReadablePortBank[T]{rc: rc, bank: b}
}

// Len returns the number of channels.
func (v ReadablePortBank[T]) Len() int { return len(v.bank.ports) }

// Get returns the value of channel i at the current tag.
func (v ReadablePortBank[T]) Get(i int) (T, bool) {
	v.rc.checkLive()
	return v.bank.ports[i].read(v.rc.tag)
}

// Present returns the indices of the channels that have a value.
func (v ReadablePortBank[T]) Present() []int {
	v.rc.checkLive()
	var out []int
	for i, p := range v.bank.ports {
		if p.isSet() {
			out = append(out, i)
		}
	}
	return out
}

// WritablePortBank is a write-only view of a port bank.
type WritablePortBank[T any] struct {
	rc   *ReactionCtx
	bank *PortBank[T]
}

// WriteBank returns a write-only view of b. The reaction must declare b as
// an effect.
func WriteBank[T any](rc *ReactionCtx, b *PortBank[T]) WritablePortBank[T] {
	rc.checkWrite(b)
	return WritablePortBank[T]{rc: rc, bank: b}
}

// Len returns the number of channels.
func (v WritablePortBank[T]) Len() int { return len(v.bank.ports) }

// Set writes val to channel i for the current tag.
func (v WritablePortBank[T]) Set(i int, val T) {
	v.rc.checkLive()
	p := v.bank.ports[i]
	p.write(val)
	v.rc.wrote(p, p.m.label, val)
}
