// Package iobuf provides a bounded, lock-free MPMC pool of reusable
// scratch buffers. The supervisor (spec.md §4.3) re-forks the target on
// every crash or planned shutdown but keeps drawing and writing payload
// blobs the whole time it runs; rather than allocate a fresh []byte for
// every protocol iteration, it checks one out of this pool, fills it,
// and returns it once the iteration's outcome has been recorded.
//
// The algorithm is the bounded SCQ-derived queue described in
// https://nikitakoval.org/publications/ppopp20-queues.pdf: a fixed ring
// of turn-tagged entries, CAS-advanced head/tail cursors, and an index
// remap that spreads adjacent slots across cache lines to cut
// false-sharing under contention.
package iobuf

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/blt/rqc/internal/cacheline"
	"github.com/blt/rqc/internal/iox"
	"github.com/blt/rqc/internal/spin"
)

// noCopy prevents a BoundedPool from being copied after its first use;
// go vet flags any accidental copy via the Locker interface.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Item is the element type constraint for BoundedPool. Scratch buffers
// are plain []byte here, but the pool itself stays generic so it can
// also recycle any other fixed-shape value the supervisor wants to pool.
type Item interface{}

const (
	entryEmpty   = 1 << 62
	entryTurnMax = entryEmpty>>32 - 1
)

// BoundedPool is a fixed-capacity, lock-free MPMC pool of items of type
// T. Capacity is rounded up to the next power of two. Safe for
// concurrent Get/Put from multiple goroutines; in this module it backs
// a single supervisor goroutine's buffer reuse, so contention is never
// actually exercised, but the algorithm costs nothing extra to keep.
type BoundedPool[T Item] struct {
	_ noCopy

	items      []T
	capacity   uint32
	mask       uint32
	entries    []atomic.Uint64
	remapM     uint32
	remapN     uint32
	remapMask  uint32
	head, tail atomic.Uint32

	nonblocking bool
}

// NewBoundedPool creates a BoundedPool of the given capacity (rounded up
// to the next power of two, 1..math.MaxUint32).
func NewBoundedPool[T Item](capacity int) *BoundedPool[T] {
	if capacity < 1 || capacity > math.MaxUint32 {
		panic("iobuf: capacity must be between 1 and MaxUint32")
	}
	capacity--
	capacity |= capacity >> 1
	capacity |= capacity >> 2
	capacity |= capacity >> 4
	capacity |= capacity >> 8
	capacity |= capacity >> 16
	capacity++

	remapM := min(cacheline.CacheLineSize/unsafe.Sizeof(atomic.Uint64{}), uintptr(capacity))
	remapN := max(1, uintptr(capacity)/remapM)
	remapMask := remapN - 1

	return &BoundedPool[T]{
		items:     make([]T, 0, capacity),
		capacity:  uint32(capacity),
		mask:      uint32(capacity - 1),
		remapM:    uint32(remapM),
		remapN:    uint32(remapN),
		remapMask: uint32(remapMask),
	}
}

// Fill populates the pool with capacity items built by newFunc, and must
// be called exactly once before Get/Put.
func (pool *BoundedPool[T]) Fill(newFunc func() T) {
	for range pool.capacity {
		pool.items = append(pool.items, newFunc())
	}
	pool.entries = make([]atomic.Uint64, pool.capacity)
	for i := range pool.capacity {
		pool.entries[i].Store(uint64(i))
	}
	pool.tail.Store(pool.capacity)
}

// SetNonblock toggles whether Get/Put return iox.ErrWouldBlock
// immediately (true) instead of adaptively waiting (false, the default).
func (pool *BoundedPool[T]) SetNonblock(nonblocking bool) {
	pool.nonblocking = nonblocking
}

// Value returns the item at the given indirect index.
func (pool *BoundedPool[T]) Value(indirect int) T {
	pool.checkFilled()
	pool.checkIndirect(indirect)
	return pool.items[indirect]
}

// SetValue sets the item at the given indirect index.
func (pool *BoundedPool[T]) SetValue(indirect int, value T) {
	pool.checkFilled()
	pool.checkIndirect(indirect)
	pool.items[indirect] = value
}

func (pool *BoundedPool[T]) checkFilled() {
	if len(pool.items) != int(pool.capacity) {
		panic("iobuf: must Fill the pool before using it")
	}
}

func (pool *BoundedPool[T]) checkIndirect(indirect int) {
	if indirect&entryEmpty == entryEmpty || indirect < 0 || indirect >= int(pool.capacity) {
		panic("iobuf: invalid bounded pool indirect")
	}
}

// Get checks out an item, returning its indirect index. In blocking mode
// (the default) it adaptively waits (iox.Backoff) while the pool is
// empty, on the theory that a checked-out buffer will be returned once
// the protocol iteration holding it finishes — an external-progress
// event, not spin-worthy work.
func (pool *BoundedPool[T]) Get() (indirect int, err error) {
	pool.checkFilled()
	var bo iox.Backoff
	for {
		entry, err := pool.tryGet()
		if err == nil {
			return int(entry & uint64(pool.mask)), nil
		}
		if err != iox.ErrWouldBlock {
			return int(entryEmpty), err
		}
		if pool.nonblocking {
			return int(entryEmpty), err
		}
		bo.Wait()
	}
}

// Put returns indirect to the pool, adaptively waiting while full unless
// SetNonblock(true) was set.
func (pool *BoundedPool[T]) Put(indirect int) error {
	pool.checkFilled()
	entry := uint64(indirect)
	var bo iox.Backoff
	for {
		err := pool.tryPut(entry)
		if err == nil {
			return nil
		}
		if err != iox.ErrWouldBlock {
			return err
		}
		if pool.nonblocking {
			return err
		}
		bo.Wait()
	}
}

// Cap returns the pool's (power-of-two-rounded) capacity.
func (pool *BoundedPool[T]) Cap() int {
	return int(pool.capacity)
}

func (pool *BoundedPool[T]) tryGet() (entry uint64, err error) {
	sw := spin.Wait{}
	for {
		h, t := pool.head.Load(), pool.tail.Load()
		hi := pool.remap(h & pool.mask)
		e := pool.entries[hi].Load()

		if h != pool.head.Load() {
			sw.Once()
			continue
		}
		if h == t {
			return uint64(entryEmpty), iox.ErrWouldBlock
		}

		nextTurn := (h/pool.capacity + 1) & entryTurnMax
		if e == pool.empty(nextTurn) {
			pool.head.CompareAndSwap(h, h+1)
			sw.Once()
			continue
		}
		ok := pool.entries[hi].CompareAndSwap(e, pool.empty(nextTurn))
		pool.head.CompareAndSwap(h, h+1)
		if ok {
			return e, nil
		}
		sw.Once()
	}
}

func (pool *BoundedPool[T]) tryPut(e uint64) error {
	sw := spin.Wait{}
	for {
		h, t := pool.head.Load(), pool.tail.Load()
		if t != pool.tail.Load() {
			sw.Once()
			continue
		}
		if t == h+pool.capacity {
			return iox.ErrWouldBlock
		}
		turn, ti := (t/pool.capacity)&entryTurnMax, pool.remap(t)
		ok := pool.entries[ti].CompareAndSwap(pool.empty(turn), e)
		pool.tail.CompareAndSwap(t, t+1)
		if ok {
			return nil
		}
		sw.Once()
	}
}

func (pool *BoundedPool[T]) remap(cursor uint32) int {
	p, q := cursor/pool.remapN, cursor&pool.remapMask
	return int(q*pool.remapM + p%pool.remapM)
}

func (pool *BoundedPool[T]) empty(turn uint32) uint64 {
	return entryEmpty | uint64(turn&entryTurnMax)
}
