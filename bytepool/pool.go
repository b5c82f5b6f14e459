// Package bytepool turns a flat source of pseudo-random bytes into typed
// values. A Pool offers a fallible Fill and a bounded ContainerSize hint;
// FinitePool and CyclicPool are the two concrete sources the rest of this
// module drives — a bounded slice that reports exhaustion, and a
// fixed-capacity ring that never runs dry.
//
// The shape mirrors the iobuf teacher package's generic pool contracts
// (Pool[T], IndirectPool[T]): polymorphism here is over the capability
// set {Fill, ContainerSize}, resolved at compile time, never through
// dynamic dispatch.
package bytepool

import "fmt"

// Kind classifies a PoolError.
type Kind int

const (
	// KindInsufficientBytes marks a FinitePool read past its backing slice.
	KindInsufficientBytes Kind = iota
	// KindShiftWrapAround marks a CyclicPool shift offset cycling through
	// every start position.
	KindShiftWrapAround
	// KindBufferInitError marks a pool constructed with an empty or
	// undersized buffer.
	KindBufferInitError
)

func (k Kind) String() string {
	switch k {
	case KindInsufficientBytes:
		return "insufficient_bytes"
	case KindShiftWrapAround:
		return "shift_wrap_around"
	case KindBufferInitError:
		return "buffer_init_error"
	default:
		return "unknown"
	}
}

// PoolError is the error type returned by Pool operations. Kind
// classifies the failure for callers that need to branch on it (the
// runner and supervisor both test it with errors.Is against the
// sentinels below); Error renders a message.
type PoolError struct {
	Kind Kind
	Msg  string
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("bytepool: %s: %s", e.Kind, e.Msg)
}

// Is reports whether target is a *PoolError with the same Kind, so
// errors.Is(err, ErrInsufficientBytes) works regardless of the message.
func (e *PoolError) Is(target error) bool {
	t, ok := target.(*PoolError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors for the three pool error kinds. Compare with errors.Is,
// not ==, since a pool may attach a more specific message.
var (
	ErrInsufficientBytes = &PoolError{Kind: KindInsufficientBytes, Msg: "not enough bytes remain"}
	ErrShiftWrapAround   = &PoolError{Kind: KindShiftWrapAround, Msg: "shift offset cycled through all start positions"}
	ErrBufferInitError   = &PoolError{Kind: KindBufferInitError, Msg: "pool buffer is empty or too small"}
)

// DefaultContainerSizeCeiling is the default upper bound (exclusive) on
// values returned by ContainerSize, matching the finite pool's default
// in the original implementation.
const DefaultContainerSizeCeiling = 256

// Pool is the contract every byte source in this module satisfies.
type Pool interface {
	// Fill copies len(dst) bytes from the pool into dst.
	Fill(dst []byte) error

	// ContainerSize produces a non-negative size, strictly less than the
	// pool's configured ceiling, for composite generators (slices, maps,
	// strings) to size themselves with.
	ContainerSize() (int, error)
}
