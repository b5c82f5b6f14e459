package bytepool

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Generator is the contract a type satisfies to draw itself from a Pool.
// Implementations are expected to be value receivers or small structs;
// composite generators (Slice, Option, Pair) recurse into one.
type Generator[T any] func(p Pool) (T, error)

// Bool draws the low bit of one byte.
func Bool(p Pool) (bool, error) {
	var b [1]byte
	if err := p.Fill(b[:]); err != nil {
		return false, err
	}
	return b[0]&1 == 1, nil
}

// Uint8 draws one byte.
func Uint8(p Pool) (uint8, error) {
	var b [1]byte
	if err := p.Fill(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Int8 draws one byte, reinterpreted as signed.
func Int8(p Pool) (int8, error) {
	v, err := Uint8(p)
	return int8(v), err
}

// Uint16 draws two bytes, native-endian (little-endian) order.
func Uint16(p Pool) (uint16, error) {
	var b [2]byte
	if err := p.Fill(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// Int16 draws two bytes, reinterpreted as signed.
func Int16(p Pool) (int16, error) {
	v, err := Uint16(p)
	return int16(v), err
}

// Uint32 draws four bytes, native-endian (little-endian) order.
func Uint32(p Pool) (uint32, error) {
	var b [4]byte
	if err := p.Fill(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// Int32 draws four bytes, reinterpreted as signed.
func Int32(p Pool) (int32, error) {
	v, err := Uint32(p)
	return int32(v), err
}

// Uint64 draws eight bytes, native-endian (little-endian) order.
func Uint64(p Pool) (uint64, error) {
	var b [8]byte
	if err := p.Fill(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Int64 draws eight bytes, reinterpreted as signed.
func Int64(p Pool) (int64, error) {
	v, err := Uint64(p)
	return int64(v), err
}

// Float32 reinterprets four drawn bytes as an IEEE-754 bit pattern,
// accepting every pattern including NaN.
func Float32(p Pool) (float32, error) {
	v, err := Uint32(p)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Float64 reinterprets eight drawn bytes as an IEEE-754 bit pattern,
// accepting every pattern including NaN.
func Float64(p Pool) (float64, error) {
	v, err := Uint64(p)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// charMask keeps the drawn value within the 21 bits a Unicode scalar can
// occupy.
const charMask = 0x001f_ffff

// Rune draws a 21-bit masked value and scans monotonically downward to
// the nearest valid Unicode scalar. This is not rejection sampling: on a
// ring-backed pool, a rejection loop could spin forever on a
// pathological offset whose resampled values are all invalid, so instead
// we walk down from the masked value, which is guaranteed to hit a valid
// scalar at or before 0 (property 5 in spec.md §8). The bias this
// introduces is acceptable for fuzzing.
func Rune(p Pool) (rune, error) {
	v, err := Uint32(p)
	if err != nil {
		return 0, err
	}
	c := v & charMask
	for !utf8.ValidRune(rune(c)) || (c >= 0xd800 && c <= 0xdfff) {
		if c == 0 {
			return 0, nil
		}
		c--
	}
	return rune(c), nil
}

// Option draws a bool discriminant, then a T if true.
func Option[T any](p Pool, gen Generator[T]) (*T, error) {
	some, err := Bool(p)
	if err != nil {
		return nil, err
	}
	if !some {
		return nil, nil
	}
	v, err := gen(p)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Result draws a bool discriminant, then either an A (ok) or a B (err).
func Result[A, B any](p Pool, genOK Generator[A], genErr Generator[B]) (ok *A, errVal *B, err error) {
	isOK, err := Bool(p)
	if err != nil {
		return nil, nil, err
	}
	if isOK {
		v, err := genOK(p)
		if err != nil {
			return nil, nil, err
		}
		return &v, nil, nil
	}
	v, err := genErr(p)
	if err != nil {
		return nil, nil, err
	}
	return nil, &v, nil
}

// Pair draws an A then a B, for tuple-shaped values.
func Pair[A, B any](p Pool, genA Generator[A], genB Generator[B]) (A, B, error) {
	var zeroA A
	var zeroB B
	a, err := genA(p)
	if err != nil {
		return zeroA, zeroB, err
	}
	b, err := genB(p)
	if err != nil {
		return zeroA, zeroB, err
	}
	return a, b, nil
}

// Array draws a fixed-length sequence of n elements using gen.
func Array[T any](p Pool, n int, gen Generator[T]) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := gen(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Slice draws ContainerSize elements using gen.
func Slice[T any](p Pool, gen Generator[T]) ([]T, error) {
	n, err := p.ContainerSize()
	if err != nil {
		return nil, err
	}
	return Array(p, n, gen)
}

// Map draws ContainerSize key/value pairs using genK and genV.
func Map[K comparable, V any](p Pool, genK Generator[K], genV Generator[V]) (map[K]V, error) {
	n, err := p.ContainerSize()
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, n)
	for i := 0; i < n; i++ {
		k, err := genK(p)
		if err != nil {
			return nil, err
		}
		v, err := genV(p)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Set draws ContainerSize elements using gen, deduplicating into a set.
func Set[T comparable](p Pool, gen Generator[T]) (map[T]struct{}, error) {
	n, err := p.ContainerSize()
	if err != nil {
		return nil, err
	}
	out := make(map[T]struct{}, n)
	for i := 0; i < n; i++ {
		v, err := gen(p)
		if err != nil {
			return nil, err
		}
		out[v] = struct{}{}
	}
	return out, nil
}

// String draws ContainerSize runes and assembles them into a string.
func String(p Pool) (string, error) {
	n, err := p.ContainerSize()
	if err != nil {
		return "", err
	}
	runes := make([]rune, n)
	for i := range runes {
		r, err := Rune(p)
		if err != nil {
			return "", err
		}
		runes[i] = r
	}
	return string(runes), nil
}

// CString draws bytes the way Slice would, then strips interior NUL
// bytes so the result is safe to hand to a C-string API.
func CString(p Pool) (string, error) {
	bs, err := Slice(p, Uint8)
	if err != nil {
		return "", err
	}
	out := bs[:0]
	for _, b := range bs {
		if b != 0 {
			out = append(out, b)
		}
	}
	return string(out), nil
}
