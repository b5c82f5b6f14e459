package bytepool_test

import (
	"testing"
	"unicode/utf8"

	"github.com/blt/rqc/bytepool"
)

func TestRune_TerminatesAndValid(t *testing.T) {
	// Every 32-bit pattern, masked to 21 bits, must land on a valid scalar
	// by scanning downward; in particular the all-ones pattern (the
	// longest possible scan) must still terminate and be valid.
	patterns := []uint32{0x0000_0000, 0xffff_ffff, 0x0010_ffff, 0x0000_d800, 0x001f_ffff}
	for _, pat := range patterns {
		buf := []byte{byte(pat), byte(pat >> 8), byte(pat >> 16), byte(pat >> 24)}
		p, err := bytepool.NewCyclicPoolFromBytes(buf, 256)
		if err != nil {
			t.Fatalf("NewCyclicPoolFromBytes: %v", err)
		}
		r, err := bytepool.Rune(p)
		if err != nil {
			t.Fatalf("Rune(%#x): %v", pat, err)
		}
		if !utf8.ValidRune(r) {
			t.Fatalf("Rune(%#x) = %q, not a valid rune", pat, r)
		}
	}
}

func TestSlice_SizedByContainerSize(t *testing.T) {
	// ceiling 11 over [1,2,3,4,5] yields container sizes 9,1,2,6,1 (see
	// the cyclic pool's ContainerSize scenario); a Slice draw should
	// consume exactly the first of those as its length.
	p, err := bytepool.NewCyclicPoolFromBytes([]byte{1, 2, 3, 4, 5}, 11)
	if err != nil {
		t.Fatalf("NewCyclicPoolFromBytes: %v", err)
	}
	got, err := bytepool.Slice(p, bytepool.Uint8)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(got) != 9 {
		t.Fatalf("len(Slice) = %d, want 9", len(got))
	}
}

func TestOption_NoneOnLowBitZero(t *testing.T) {
	p, err := bytepool.NewCyclicPoolFromBytes([]byte{0x00}, 256)
	if err != nil {
		t.Fatalf("NewCyclicPoolFromBytes: %v", err)
	}
	v, err := bytepool.Option(p, bytepool.Uint8)
	if err != nil {
		t.Fatalf("Option: %v", err)
	}
	if v != nil {
		t.Fatalf("Option = %v, want nil", v)
	}
}

func TestOption_SomeOnLowBitOne(t *testing.T) {
	p, err := bytepool.NewCyclicPoolFromBytes([]byte{0x01, 0x2a}, 256)
	if err != nil {
		t.Fatalf("NewCyclicPoolFromBytes: %v", err)
	}
	v, err := bytepool.Option(p, bytepool.Uint8)
	if err != nil {
		t.Fatalf("Option: %v", err)
	}
	if v == nil || *v != 0x2a {
		t.Fatalf("Option = %v, want pointer to 0x2a", v)
	}
}
