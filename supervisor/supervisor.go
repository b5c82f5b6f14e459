package supervisor

import (
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/blt/rqc/internal/iobuf"
	"github.com/blt/rqc/internal/iox"
)

// scratchPoolCapacity bounds how many in-flight payload scratch buffers
// the supervisor keeps recycled. One is in flight per protocol
// iteration, so a small pool comfortably covers the single-threaded
// supervisor loop with headroom for the occasional slow reclaim.
const scratchPoolCapacity = 8

// noScratchBuffer marks that no buffer is currently checked out.
const noScratchBuffer = -1

// Config configures a supervisor run.
type Config struct {
	// Target is the path to the test-target executable.
	Target string
	// ShmPath names the POSIX shared-memory object (default "/RQC").
	ShmPath string
	// MaximumTestBytes bounds the payload capacity in bytes (default 1024).
	MaximumTestBytes int
	// Seed initializes the supervisor's payload PRNG. Zero means "use
	// the wall-clock epoch second at Run start."
	Seed uint64
}

// DefaultConfig returns the §6 CLI defaults.
func DefaultConfig(target string) Config {
	return Config{
		Target:           target,
		ShmPath:          DefaultShmPath,
		MaximumTestBytes: DefaultMaximumTestBytes,
	}
}

// Statistics are the supervisor-local counters from spec.md §4.3. They
// are single-writer (the supervisor's own goroutine) with a concurrent
// reader (the 1 Hz printer), so plain atomics are sufficient.
type Statistics struct {
	Passed            atomic.Uint64
	Skipped           atomic.Uint64
	Failed            atomic.Uint64
	InsufficientBytes atomic.Uint64
	CrashFailures     atomic.Uint64
	Restarts          atomic.Uint64
	TestCases         atomic.Uint64
}

// Supervisor drives the out-of-process mode: allocate shared memory,
// fork the target, run the word-offset protocol, and survive crashes.
type Supervisor struct {
	cfg     Config
	log     zerolog.Logger
	stats   Statistics
	rng     *rand.Rand
	scratch *iobuf.BoundedPool[[]byte]
	curBuf  int
}

// New constructs a Supervisor. log is stored as given; a zero-value
// zerolog.Logger discards everything written to it.
func New(cfg Config, log zerolog.Logger) *Supervisor {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().Unix())
	}
	scratch := iobuf.NewBoundedPool[[]byte](scratchPoolCapacity)
	scratch.Fill(func() []byte { return make([]byte, cfg.MaximumTestBytes) })
	return &Supervisor{
		cfg:     cfg,
		log:     log,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		scratch: scratch,
		curBuf:  noScratchBuffer,
	}
}

// drawPayload checks out a recycled scratch buffer from the pool, fills
// it with n fresh random bytes, and remembers its indirect index so the
// corresponding protocol iteration can return it via releasePayload.
func (s *Supervisor) drawPayload(n int) []byte {
	indirect, err := s.scratch.Get()
	if err != nil {
		// The pool only blocks when every buffer is checked out, which
		// cannot happen here since exactly one is ever in flight at a
		// time; fall back to a fresh allocation rather than propagate.
		return make([]byte, n)
	}
	s.curBuf = indirect
	buf := s.scratch.Value(indirect)[:n]
	for i := range buf {
		buf[i] = byte(s.rng.Uint32())
	}
	s.scratch.SetValue(indirect, buf[:cap(buf)])
	return buf
}

// releasePayload returns the buffer most recently handed out by
// drawPayload to the scratch pool.
func (s *Supervisor) releasePayload() {
	if s.curBuf == noScratchBuffer {
		return
	}
	_ = s.scratch.Put(s.curBuf)
	s.curBuf = noScratchBuffer
}

// Run allocates the shared region, then loops forking the target and
// running the protocol. Both a crash and a planned shutdown (exit 0
// after at least one delivered test) lead to a re-fork; Run returns only
// when a non-recoverable error occurs. Run always unlinks the
// shared-memory path before returning.
func (s *Supervisor) Run() error {
	region, err := CreateSharedRegion(s.cfg.ShmPath, s.cfg.MaximumTestBytes)
	if err != nil {
		return fmt.Errorf("supervisor: shared-memory setup failed: %w", err)
	}
	defer region.Close()

	shutdown := make(chan struct{})
	reporterDone := make(chan struct{})
	go s.runReporter(shutdown, reporterDone)
	defer func() {
		close(shutdown)
		<-reporterDone
	}()

	for {
		if _, err := s.superviseOneChild(region); err != nil {
			return err
		}
		s.stats.Restarts.Add(1)
	}
}

// superviseOneChild forks one target process and runs the protocol loop
// against it until it exits, reporting whether the exit was a planned
// shutdown (true) or a crash (false); Run re-forks after either.
func (s *Supervisor) superviseOneChild(region *SharedRegion) (planned bool, err error) {
	cmd := exec.Command(s.cfg.Target, s.cfg.ShmPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Pdeathsig covers the case where the supervisor itself is killed
	// outright (SIGKILL, OOM) and never reaches the deferred Kill below;
	// the deferred Kill covers every other return path (waitpid errors,
	// the misconfigured-target error), so the target never outlives us.
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("supervisor: fork failed: %w", err)
	}
	pid := cmd.Process.Pid
	defer func() {
		// No-op once the child has already been reaped below.
		_ = cmd.Process.Kill()
	}()

	region.storeServerStatus(ServerDefault)
	region.storeClientStatus(ClientDefault)

	testsDeliveredThisChild := uint64(0)
	backoff := iox.Backoff{}

	for {
		var ws unix.WaitStatus
		wpid, waitErr := unix.Wait4(pid, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
		if waitErr != nil {
			// ECHILD and any other waitpid failure are both
			// unrecoverable per spec.md §4.3: record and shut down.
			return false, fmt.Errorf("supervisor: waitpid: %w", waitErr)
		}

		if wpid == pid && (ws.Exited() || ws.Signaled()) {
			return s.handleChildExit(ws, testsDeliveredThisChild)
		}

		progressed := s.step(region, &testsDeliveredThisChild)
		if progressed {
			backoff.Reset()
		} else {
			backoff.Wait()
		}
	}
}

// handleChildExit classifies a terminated child per spec.md §4.3's
// Exited(0)/Exited(n≠0) table.
func (s *Supervisor) handleChildExit(ws unix.WaitStatus, testsDelivered uint64) (planned bool, err error) {
	if ws.Signaled() || ws.ExitStatus() != 0 {
		s.stats.CrashFailures.Add(1)
		s.log.Warn().Int("exit_status", ws.ExitStatus()).Bool("signaled", ws.Signaled()).Msg("target crashed, re-forking")
		return false, nil
	}
	if testsDelivered == 0 {
		return false, fmt.Errorf("supervisor: target exited 0 before delivering any test; misconfigured target")
	}
	s.log.Info().Msg("target exited cleanly after delivering tests, planned shutdown")
	return true, nil
}

// step runs one server-side protocol iteration (spec.md §4.3) and
// reports whether a meaningful transition occurred (for backoff reset).
func (s *Supervisor) step(region *SharedRegion, testsDelivered *uint64) (progressed bool) {
	clientStatus := region.loadClientStatus()
	switch clientStatus {
	case ClientDefault:
		return false

	case ClientReady:
		if region.loadServerStatus() == ServerDefault {
			payload := s.drawPayload(s.cfg.MaximumTestBytes)
			region.writePayload(payload)
			s.releasePayload()
			region.storeServerStatus(ServerReady)
			return true
		}
		return false

	default:
		s.recordOutcome(clientStatus)
		*testsDelivered++
		region.storeClientStatus(ClientDefault)
		region.storeServerStatus(ServerDefault)
		return true
	}
}

func (s *Supervisor) recordOutcome(status ClientStatus) {
	s.stats.TestCases.Add(1)
	switch status {
	case ClientPassed:
		s.stats.Passed.Add(1)
	case ClientSkipped:
		s.stats.Skipped.Add(1)
	case ClientFailed:
		s.stats.Failed.Add(1)
	case ClientInsufficientBytes:
		s.stats.InsufficientBytes.Add(1)
	}
}

func (s *Supervisor) runReporter(shutdown <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			s.log.Info().
				Uint64("passed", s.stats.Passed.Load()).
				Uint64("skipped", s.stats.Skipped.Load()).
				Uint64("failed", s.stats.Failed.Load()).
				Uint64("insufficient_bytes", s.stats.InsufficientBytes.Load()).
				Uint64("crash_failures", s.stats.CrashFailures.Load()).
				Uint64("restarts", s.stats.Restarts.Load()).
				Uint64("test_cases", s.stats.TestCases.Load()).
				Msg("rqc supervisor stats")
		}
	}
}
