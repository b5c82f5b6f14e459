package supervisor

import (
	"errors"
	"fmt"

	"github.com/blt/rqc/bytepool"
	"github.com/blt/rqc/internal/iox"
	"github.com/blt/rqc/runner"
)

// ClientPredicate is the test target's check, run once per delivered
// payload against a FinitePool built over that payload.
type ClientPredicate func(p *bytepool.FinitePool) (runner.Outcome, error)

// RunClient implements the target side of the protocol (spec.md §4.3):
// open the shared region at shmPath, then loop announcing readiness,
// waiting for a payload, running predicate, and reporting the outcome.
//
// maxTests bounds how many iterations this process runs before returning
// nil (a planned, exit-0 shutdown the supervisor re-forks after). Zero
// means run until killed externally, which is how a deliberately-hanging
// or supervisor-terminated target behaves.
func RunClient(shmPath string, maxTests uint64, predicate ClientPredicate) error {
	region, err := OpenSharedRegion(shmPath)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	defer func() { _ = region.Close() }()

	backoff := iox.Backoff{}
	for i := uint64(0); maxTests == 0 || i < maxTests; i++ {
		region.storeClientStatus(ClientReady)

		backoff.Reset()
		for region.loadServerStatus() != ServerReady {
			backoff.Wait()
		}

		payload := region.readPayload()
		pool := bytepool.NewFinitePool(payload)

		outcome, predErr := predicate(pool)
		status := outcomeToStatus(outcome, predErr)
		region.storeClientStatus(status)

		backoff.Reset()
		for region.loadServerStatus() != ServerDefault {
			backoff.Wait()
		}
	}
	return nil
}

// outcomeToStatus maps a predicate's result to a ClientStatus, treating
// an ErrInsufficientBytes as its own distinct status per spec.md §4.3.
func outcomeToStatus(outcome runner.Outcome, err error) ClientStatus {
	if err != nil {
		if errors.Is(err, bytepool.ErrInsufficientBytes) {
			return ClientInsufficientBytes
		}
		return ClientFailed
	}
	switch outcome {
	case runner.Passed:
		return ClientPassed
	case runner.Skipped:
		return ClientSkipped
	default:
		return ClientFailed
	}
}
