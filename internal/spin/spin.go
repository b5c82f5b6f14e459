// Package spin provides a single CPU-level spin-wait step for lock-free
// retry loops where the expected wait is a handful of instructions, not
// an OS scheduling quantum, such as the lock-free pool's CAS retry loop.
// The shared-memory protocol's polls use iox.Backoff, not this package.
//
// Mirrors code.hybscloud.com/spin's Wait type, which this module cannot
// vendor (private module, no source available); the shape is reconstructed
// from its call sites in the iobuf teacher package.
package spin

import "runtime"

// Wait is a zero-value-usable spin-wait step. Once should be called once
// per failed CAS attempt or failed flag poll; it yields the current
// goroutine's processor slice via runtime.Gosched so a stuck spinner
// doesn't starve the goroutine it is waiting on.
type Wait struct {
	spins int
}

// Once performs one spin step.
func (w *Wait) Once() {
	w.spins++
	runtime.Gosched()
}

// Yield is a free function form of Once, for call sites (mainly tests)
// that want to cede the processor without tracking a Wait value.
func Yield() {
	runtime.Gosched()
}
