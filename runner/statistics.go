package runner

import "sync/atomic"

// Statistics holds the process-wide, monotonically-incremented counters
// for a single run. The driver goroutine increments; the reporter
// goroutine only reads, except for its own delta snapshot bookkeeping.
type Statistics struct {
	passed            atomic.Uint64
	skipped           atomic.Uint64
	failed            atomic.Uint64
	insufficientBytes atomic.Uint64
	testCases         atomic.Uint64
	lastPassed        uint64
	lastSkipped       uint64
	lastFailed        uint64
	lastInsufficient  uint64
	lastTestCases     uint64
}

// Snapshot is a point-in-time, non-atomic copy of Statistics suitable for
// printing.
type Snapshot struct {
	Passed, Skipped, Failed, InsufficientBytes, TestCases uint64
}

func (s *Statistics) snapshot() Snapshot {
	return Snapshot{
		Passed:            s.passed.Load(),
		Skipped:           s.skipped.Load(),
		Failed:            s.failed.Load(),
		InsufficientBytes: s.insufficientBytes.Load(),
		TestCases:         s.testCases.Load(),
	}
}

// delta returns the change since the last call to delta, for the 1 Hz
// reporter's rate lines. Only the reporter goroutine may call this.
func (s *Statistics) delta() Snapshot {
	cur := s.snapshot()
	d := Snapshot{
		Passed:            cur.Passed - s.lastPassed,
		Skipped:           cur.Skipped - s.lastSkipped,
		Failed:            cur.Failed - s.lastFailed,
		InsufficientBytes: cur.InsufficientBytes - s.lastInsufficient,
		TestCases:         cur.TestCases - s.lastTestCases,
	}
	s.lastPassed = cur.Passed
	s.lastSkipped = cur.Skipped
	s.lastFailed = cur.Failed
	s.lastInsufficient = cur.InsufficientBytes
	s.lastTestCases = cur.TestCases
	return d
}
