package iox_test

import (
	"testing"
	"time"

	"github.com/blt/rqc/internal/iox"
)

func TestBackoff_EscalatesThenSaturates(t *testing.T) {
	var b iox.Backoff

	start := time.Now()
	b.Wait() // attempt 0 -> 0ms
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Fatalf("first Wait() took %v, want near-instant", elapsed)
	}

	// Subsequent waits should only grow, never shrink, until saturation.
	var last time.Duration
	for i := 0; i < 6; i++ {
		start := time.Now()
		b.Wait()
		elapsed := time.Since(start)
		if elapsed < last-time.Millisecond {
			t.Fatalf("Wait() call %d took %v, shorter than previous %v", i, elapsed, last)
		}
		last = elapsed
	}
}

func TestBackoff_ResetReturnsToZeroDelay(t *testing.T) {
	var b iox.Backoff
	for i := 0; i < 5; i++ {
		b.Wait()
	}
	b.Reset()

	start := time.Now()
	b.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Fatalf("Wait() after Reset() took %v, want near-instant", elapsed)
	}
}
