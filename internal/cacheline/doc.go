// Package cacheline exposes the CPU L1 cache line size for the current
// build target, used to pad hot atomic fields apart so independent
// writers don't false-share a cache line: the cyclic pool's PRNG state
// against its offset/shift words, and the bounded pool's index remap,
// which spreads adjacent ring slots across cache lines.
package cacheline
