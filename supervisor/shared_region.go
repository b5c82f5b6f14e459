package supervisor

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SharedRegion wraps a POSIX shared-memory segment mapped read-write,
// exposing the word-offset protocol from spec.md §4.3. Word 0 and word 2
// are mutated only by the supervisor side. Word 1 is written by the
// target side, except that the supervisor resets it to ClientDefault
// after recording an outcome and before each fork. Payload bytes follow release/acquire discipline relative to the
// flag words: write payload then status; read status then payload.
type SharedRegion struct {
	mem    []byte
	path   string
	fd     int
	size   int64
	owner  bool // true for the side that created (and unlinks) the segment
}

// shmDir is where POSIX shared-memory objects live on Linux; shm_open is
// conventionally a thin wrapper over open(2) against this tmpfs mount,
// which is the approach taken here since x/sys/unix exposes no direct
// shm_open binding.
const shmDir = "/dev/shm"

func shmPathFor(name string) string {
	return shmDir + "/" + name
}

func shmOpen(name string, flags int, perm os.FileMode) (int, error) {
	return unix.Open(shmPathFor(name), flags, uint32(perm))
}

func shmUnlink(name string) error {
	return unix.Unlink(shmPathFor(name))
}

// CreateSharedRegion unlinks any pre-existing segment at path, creates a
// new one sized for maxTestBytes of payload plus protocol overhead, and
// maps it read-write shared. Called by the supervisor.
func CreateSharedRegion(path string, maxTestBytes int) (*SharedRegion, error) {
	_ = shmUnlink(path)

	fd, err := shmOpen(path, unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("supervisor: shm_open %s: %w", path, err)
	}
	size := segmentSize(maxTestBytes)
	if err := unix.Ftruncate(fd, int(size)); err != nil {
		_ = unix.Close(fd)
		_ = shmUnlink(path)
		return nil, fmt.Errorf("supervisor: ftruncate %s to %d: %w", path, size, err)
	}

	return mapRegion(path, fd, size, true)
}

// OpenSharedRegion opens and maps an existing segment created by
// CreateSharedRegion. Called by the target.
func OpenSharedRegion(path string) (*SharedRegion, error) {
	fd, err := shmOpen(path, unix.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("supervisor: shm_open %s: %w", path, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("supervisor: fstat %s: %w", path, err)
	}
	return mapRegion(path, fd, st.Size, false)
}

func mapRegion(path string, fd int, size int64, owner bool) (*SharedRegion, error) {
	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		if owner {
			_ = shmUnlink(path)
		}
		return nil, fmt.Errorf("supervisor: mmap %s: %w", path, err)
	}
	return &SharedRegion{mem: mem, path: path, fd: fd, size: size, owner: owner}, nil
}

// word returns an atomic view of the 64-bit word at the given word
// index (not byte index).
func (r *SharedRegion) word(idx int) *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&r.mem[idx*8]))
}

func (r *SharedRegion) loadServerStatus() ServerStatus { return ServerStatus(r.word(wordServerStatus).Load()) }
func (r *SharedRegion) storeServerStatus(s ServerStatus) { r.word(wordServerStatus).Store(uint64(s)) }

func (r *SharedRegion) loadClientStatus() ClientStatus { return ClientStatus(r.word(wordClientStatus).Load()) }
func (r *SharedRegion) storeClientStatus(s ClientStatus) { r.word(wordClientStatus).Store(uint64(s)) }

func (r *SharedRegion) loadPayloadLen() int { return int(r.word(wordPayloadLen).Load()) }
func (r *SharedRegion) storePayloadLen(n int) { r.word(wordPayloadLen).Store(uint64(n)) }

// payloadCapacity returns the number of payload bytes the segment can
// hold after the header.
func (r *SharedRegion) payloadCapacity() int {
	return int(r.size) - headerBytes
}

// writePayload copies src into the payload region and records its
// length. Must be called, in order, before storeServerStatus(ServerReady)
// (release semantics: payload is visible before the flag that announces
// it).
func (r *SharedRegion) writePayload(src []byte) {
	n := copy(r.mem[headerBytes:], src)
	r.storePayloadLen(n)
}

// readPayload returns a copy of the current payload, sized by the
// payload-length word. Must be called after observing ServerReady
// (acquire semantics).
func (r *SharedRegion) readPayload() []byte {
	n := r.loadPayloadLen()
	out := make([]byte, n)
	copy(out, r.mem[headerBytes:headerBytes+n])
	return out
}

// Close unmaps the segment and, if this side created it, unlinks the
// shared-memory path.
func (r *SharedRegion) Close() error {
	err := unix.Munmap(r.mem)
	_ = unix.Close(r.fd)
	if r.owner {
		_ = shmUnlink(r.path)
	}
	return err
}
