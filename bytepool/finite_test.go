package bytepool_test

import (
	"errors"
	"testing"

	"github.com/blt/rqc/bytepool"
)

func TestFinitePool_ExhaustionDoesNotMutateOffset(t *testing.T) {
	p := bytepool.NewFinitePool([]byte{1, 2, 3, 4})

	dst := make([]byte, 3)
	if err := p.Fill(dst); err != nil {
		t.Fatalf("Fill(3): %v", err)
	}
	if p.Offset() != 3 {
		t.Fatalf("offset = %d, want 3", p.Offset())
	}

	// Only 1 byte remains; requesting 2 must fail without mutating offset.
	dst2 := make([]byte, 2)
	err := p.Fill(dst2)
	if !errors.Is(err, bytepool.ErrInsufficientBytes) {
		t.Fatalf("Fill(2) err = %v, want ErrInsufficientBytes", err)
	}
	if p.Offset() != 3 {
		t.Fatalf("offset after failed fill = %d, want unchanged 3", p.Offset())
	}

	dst3 := make([]byte, 1)
	if err := p.Fill(dst3); err != nil {
		t.Fatalf("Fill(1): %v", err)
	}
	if dst3[0] != 4 {
		t.Fatalf("last byte = %d, want 4", dst3[0])
	}
}

func TestFinitePool_ExhaustionBoundary(t *testing.T) {
	for l := 0; l <= 8; l++ {
		buf := make([]byte, l)
		for i := range buf {
			buf[i] = byte(i + 1)
		}
		p := bytepool.NewFinitePool(buf)
		dst := make([]byte, l)
		if err := p.Fill(dst); err != nil {
			t.Fatalf("length %d: Fill(%d) should succeed, got %v", l, l, err)
		}
		if err := p.Fill(make([]byte, 1)); !errors.Is(err, bytepool.ErrInsufficientBytes) {
			t.Fatalf("length %d: Fill(1) past exhaustion should fail, got %v", l, err)
		}
	}
}

func TestFinitePool_ContainerSizeBelowCeiling(t *testing.T) {
	const ceiling = 19
	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	p := bytepool.NewFinitePool(buf).WithContainerSizeCeiling(ceiling)
	for i := 0; i < 200; i++ {
		got, err := p.ContainerSize()
		if err != nil {
			t.Fatalf("ContainerSize() call %d: %v", i, err)
		}
		if got < 0 || got >= ceiling {
			t.Fatalf("ContainerSize() call %d = %d, out of bound [0, %d)", i, got, ceiling)
		}
	}
}
