package bytepool

import "encoding/binary"

// FinitePool is a Pool backed by an immutable byte slice that reports
// ErrInsufficientBytes on underflow instead of wrapping. It is the pool
// variant used on the supervisor/target IPC path (§4.3): the supervisor
// writes one random blob per test, and the target consumes it through a
// FinitePool built over a copy of the shared-memory payload.
type FinitePool struct {
	buf     []byte
	offset  int
	ceiling int
}

// NewFinitePool wraps buf (not copied) with the default container-size
// ceiling.
func NewFinitePool(buf []byte) *FinitePool {
	return &FinitePool{buf: buf, ceiling: DefaultContainerSizeCeiling}
}

// WithContainerSizeCeiling overrides the default ceiling and returns the
// same pool for chaining.
func (p *FinitePool) WithContainerSizeCeiling(ceiling int) *FinitePool {
	p.ceiling = ceiling
	return p
}

// Offset returns the current read cursor, for tests and instrumentation.
func (p *FinitePool) Offset() int { return p.offset }

// Len returns the number of bytes backing this pool.
func (p *FinitePool) Len() int { return len(p.buf) }

// Fill copies len(dst) bytes starting at the current offset. If fewer
// than len(dst) bytes remain, it returns ErrInsufficientBytes and leaves
// the offset untouched — property 1 in §8 depends on this.
func (p *FinitePool) Fill(dst []byte) error {
	if len(p.buf)-p.offset < len(dst) {
		return ErrInsufficientBytes
	}
	n := copy(dst, p.buf[p.offset:])
	p.offset += n
	return nil
}

// ContainerSize draws a native 8-byte word (matching the width of a
// platform usize) and returns it modulo the configured ceiling.
func (p *FinitePool) ContainerSize() (int, error) {
	var b [8]byte
	if err := p.Fill(b[:]); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint64(b[:]) % uint64(p.ceiling)), nil
}
