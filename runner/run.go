// Package runner implements the in-process driver loop (spec.md §4.2):
// it repeatedly invokes a predicate against a cyclic byte pool, tallies
// Outcomes, and on failure drives the pool through a shrink/shift search
// for a smaller failing input. A background reporter goroutine prints
// cumulative and per-second rate statistics while the driver runs.
package runner

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/blt/rqc/bytepool"
)

// Result is returned by Run once the configured test-count or runtime
// ceiling is reached.
type Result struct {
	Stats    Snapshot
	Duration time.Duration
}

// Run drives predicate against a freshly constructed cyclic pool until
// cfg's MaxTests or RuntimeSeconds ceiling is reached, logging to log (a
// nil logger is replaced with a disabled one).
//
// Run owns its cyclic pool exclusively for the duration of the call, per
// spec.md §9's borrow-discipline design note; it must not be called
// concurrently from multiple goroutines against the same Config's pool.
func Run(cfg Config, predicate Predicate, log *zerolog.Logger) (Result, error) {
	if log == nil {
		disabled := zerolog.Nop()
		log = &disabled
	}

	start := time.Now()
	seed := resolveSeed(cfg, start)
	pool, err := bytepool.NewCyclicPool(cfg.PoolCapacity, cfg.ContainerSizeCeiling, seed)
	if err != nil {
		return Result{}, err
	}

	var stats Statistics
	shutdown := make(chan struct{})
	reporterDone := make(chan struct{})
	go runReporter(&stats, log, shutdown, reporterDone)
	defer func() {
		close(shutdown)
		<-reporterDone
	}()

	deadline := start.Add(time.Duration(cfg.RuntimeSeconds) * time.Second)
	var testsRun uint64
	reallocFlag := false

	for testsRun < cfg.MaxTests && time.Now().Before(deadline) {
		if reallocFlag {
			pool.HardReset()
			reallocFlag = false
		}
		saved := pool.Offset()

	searchLoop:
		for {
			outcome, err := predicate(pool)
			if err != nil {
				if !errors.Is(err, bytepool.ErrInsufficientBytes) {
					return Result{Stats: stats.snapshot(), Duration: time.Since(start)}, err
				}
				stats.insufficientBytes.Add(1)
				pool.SoftReset()
				if shiftErr := pool.ShiftRight(1); errors.Is(shiftErr, bytepool.ErrShiftWrapAround) {
					reallocFlag = true
					break searchLoop
				}
				continue
			}

			switch outcome {
			case Passed:
				stats.passed.Add(1)
				break searchLoop
			case Skipped:
				stats.skipped.Add(1)
				continue
			case Failed:
				stats.failed.Add(1)
				newV := pool.ShrinkFrom(saved)
				if newV == 0 {
					pool.SoftReset()
					if shiftErr := pool.ShiftRight(1); errors.Is(shiftErr, bytepool.ErrShiftWrapAround) {
						reallocFlag = true
						break searchLoop
					}
				}
			default:
				break searchLoop
			}
		}

		testsRun++
		stats.testCases.Add(1)
	}

	return Result{Stats: stats.snapshot(), Duration: time.Since(start)}, nil
}

func runReporter(stats *Statistics, log *zerolog.Logger, shutdown <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			d := stats.delta()
			cur := stats.snapshot()
			log.Info().
				Uint64("passed", cur.Passed).
				Uint64("skipped", cur.Skipped).
				Uint64("failed", cur.Failed).
				Uint64("insufficient_bytes", cur.InsufficientBytes).
				Uint64("test_cases", cur.TestCases).
				Uint64("passed_per_sec", d.Passed).
				Uint64("skipped_per_sec", d.Skipped).
				Uint64("failed_per_sec", d.Failed).
				Msg("rqc stats")
		}
	}
}
