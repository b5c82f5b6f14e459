package runner

import "github.com/blt/rqc/bytepool"

// Outcome is the tagged result a predicate returns for one test iteration.
type Outcome int

const (
	// Passed means the predicate's property held for the drawn input.
	Passed Outcome = iota
	// Skipped means the drawn input was judged uninteresting, not faulty.
	// The pool position is reused so the next draw explores differently.
	Skipped
	// Failed means the predicate's property did not hold.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Predicate is a user-supplied test target. It draws values from p and
// returns an Outcome, or a *bytepool.PoolError (ErrInsufficientBytes in
// practice) if the pool ran dry mid-draw.
type Predicate func(p *bytepool.CyclicPool) (Outcome, error)
