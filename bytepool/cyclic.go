package bytepool

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/blt/rqc/internal/cacheline"
)

// CyclicPool is a Pool backed by a fixed-capacity buffer that is re-read
// (with offset/shift/virtual-length adjustments) to simulate an infinite
// stream. It never fails to Fill; instead the in-process runner (§4.2)
// drives its shrink/shift/reset operations to search for small failing
// inputs.
//
// CyclicPool owns its buffer and PRNG state exclusively; callers must
// give each predicate invocation an exclusive handle for its duration
// (see runner.Run).
type CyclicPool struct {
	buf     []byte
	offset  int // o
	shift   int // s
	virtLen int // v

	// _pad keeps the PRNG below from sharing a cache line with the hot
	// offset/shift/virtLen words above, which every Fill call touches.
	_pad [cacheline.CacheLineSize]byte

	rng     *rand.Rand
	ceiling int
}

// NewCyclicPool allocates a pool of the given capacity, draws its
// initial contents from seed, and sets the virtual length to the full
// capacity (fresh pools start at full length; only SoftReset and
// ShrinkFrom halve it — see spec.md §9 open question 3).
//
// Returns ErrBufferInitError if capacity < 1.
func NewCyclicPool(capacity int, ceiling int, seed uint64) (*CyclicPool, error) {
	if capacity < 1 {
		return nil, ErrBufferInitError
	}
	p := &CyclicPool{
		buf:     make([]byte, capacity),
		virtLen: capacity,
		ceiling: ceiling,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for i := range p.buf {
		p.buf[i] = byte(p.rng.Uint32())
	}
	return p, nil
}

// NewCyclicPoolFromBytes wraps an existing byte slice (copied) as a
// fresh, full-length cyclic pool without drawing from a PRNG. Used for
// deterministic replay and for tests that pin exact buffer contents
// (scenarios S1-S4 in spec.md §8).
func NewCyclicPoolFromBytes(buf []byte, ceiling int) (*CyclicPool, error) {
	if len(buf) < 1 {
		return nil, ErrBufferInitError
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	return &CyclicPool{
		buf:     cp,
		virtLen: len(cp),
		ceiling: ceiling,
		rng:     rand.New(rand.NewPCG(1, 2)),
	}, nil
}

// Offset returns the current read cursor o.
func (p *CyclicPool) Offset() int { return p.offset }

// Shift returns the current shift offset s.
func (p *CyclicPool) Shift() int { return p.shift }

// VirtualLen returns the current virtual length v.
func (p *CyclicPool) VirtualLen() int { return p.virtLen }

// Cap returns the fixed physical capacity of the underlying buffer.
func (p *CyclicPool) Cap() int { return len(p.buf) }

// Fill copies len(dst) bytes, wrapping across [o..v) then [0..o) as
// needed, and advances o to (o + len(dst)) mod v. It never fails.
func (p *CyclicPool) Fill(dst []byte) error {
	for i := range dst {
		dst[i] = p.buf[p.offset]
		p.offset++
		if p.offset >= p.virtLen {
			p.offset = 0
		}
	}
	return nil
}

// ContainerSize draws a native 8-byte word (matching the width of a
// platform usize) and returns it modulo the configured ceiling. It never
// fails: CyclicPool.Fill wraps rather than underflows.
func (p *CyclicPool) ContainerSize() (int, error) {
	var b [8]byte
	_ = p.Fill(b[:])
	return int(binary.LittleEndian.Uint64(b[:]) % uint64(p.ceiling)), nil
}

// ShiftRight advances the logical start of the stream by k positions and
// repositions the read cursor there. It returns ErrShiftWrapAround once
// the shift offset has cycled through every start position in the
// buffer (property 3 in §8), at which point the caller is expected to
// HardReset.
func (p *CyclicPool) ShiftRight(k int) error {
	p.shift += k
	p.offset = p.shift
	if p.shift >= len(p.buf)-1 {
		return ErrShiftWrapAround
	}
	return nil
}

// SoftReset repositions the read cursor to the current shift offset and
// halves the virtual length, narrowing the window the next search pass
// draws from.
func (p *CyclicPool) SoftReset() {
	p.offset = p.shift
	p.virtLen /= 2
}

// HardReset redraws the entire buffer from the PRNG and restores the
// pool to its fresh state: full virtual length, offset and shift both at
// zero. This is the only operation that returns the pool to full-length
// steady state once a search has shrunk it (spec.md §9 open question 3).
func (p *CyclicPool) HardReset() {
	for i := range p.buf {
		p.buf[i] = byte(p.rng.Uint32())
	}
	p.offset = 0
	p.shift = 0
	p.virtLen = len(p.buf)
}

// ShrinkFrom repositions the read cursor to savedOffset and halves the
// virtual length, returning the new length. A returned length of 0 means
// shrinking is exhausted: the caller should SoftReset and ShiftRight
// instead.
func (p *CyclicPool) ShrinkFrom(savedOffset int) int {
	p.offset = savedOffset
	p.virtLen /= 2
	return p.virtLen
}
