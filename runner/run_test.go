package runner_test

import (
	"testing"

	"github.com/blt/rqc/bytepool"
	"github.com/blt/rqc/runner"
)

func TestRun_CounterConservation(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.MaxTests = 500
	cfg.PoolCapacity = 4096
	cfg.Seed = 7

	var invocations uint64
	predicate := func(p *bytepool.CyclicPool) (runner.Outcome, error) {
		invocations++
		b, err := bytepool.Uint8(p)
		if err != nil {
			return 0, err
		}
		switch {
		case b%7 == 0:
			return runner.Skipped, nil
		case b%13 == 0:
			return runner.Failed, nil
		default:
			return runner.Passed, nil
		}
	}

	result, err := runner.Run(cfg, predicate, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Property 6: sum of Passed+Skipped+Failed equals the number of
	// predicate invocations, regardless of how many outer iterations
	// (TestCases) those invocations were grouped into by shrink/skip
	// looping.
	sum := result.Stats.Passed + result.Stats.Skipped + result.Stats.Failed
	if sum != invocations {
		t.Fatalf("Passed+Skipped+Failed = %d, want equal to invocation count %d", sum, invocations)
	}
	if result.Stats.TestCases != cfg.MaxTests {
		t.Fatalf("TestCases = %d, want %d", result.Stats.TestCases, cfg.MaxTests)
	}
}

func TestRun_AlwaysPassing(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.MaxTests = 50
	cfg.PoolCapacity = 1024

	predicate := func(p *bytepool.CyclicPool) (runner.Outcome, error) {
		lhs, err := bytepool.Uint8(p)
		if err != nil {
			return 0, err
		}
		rhs, err := bytepool.Uint8(p)
		if err != nil {
			return 0, err
		}
		mul := uint16(lhs) * uint16(rhs)
		var add uint16
		for i := uint8(0); i < rhs; i++ {
			add += uint16(lhs)
		}
		if mul != add {
			return runner.Failed, nil
		}
		return runner.Passed, nil
	}

	result, err := runner.Run(cfg, predicate, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stats.Failed != 0 {
		t.Fatalf("Failed = %d, want 0 (mul_is_add must hold)", result.Stats.Failed)
	}
}
