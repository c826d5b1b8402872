// Package ipc implements the supervisor's shared state region: run status,
// active worker count, the slot table, and the application key/value map,
// all protected by a single mutex exactly as spec'd. Workers in this
// rewrite are re-exec'd children of the supervisor process rather than
// unrelated processes attaching to a POSIX shared-memory segment, so an
// in-process struct behind a sync.Mutex satisfies every invariant without
// cgo — the design notes this repo is built from explicitly sanction that
// reduction when workers are not fully independent OS citizens.
package ipc

import (
	"crypto/sha1"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
)

// RunStatus is the monotonic lifecycle flag of the region.
type RunStatus int32

const (
	StatusRun RunStatus = iota
	StatusTerminate
)

func (s RunStatus) String() string {
	if s == StatusTerminate {
		return "TERMINATE"
	}
	return "RUN"
}

// Slot is one position in the bounded worker pool.
type Slot struct {
	Index    int
	Occupied bool
}

// Region is the fixed-layout shared state: run status, active count, the
// slot table, and the application variable map. Every field mutated
// together must be mutated under Lock/Unlock (or WithLock); single-field
// reads of run status and active count (RunStatus, ActiveCount) are
// lock-free.
type Region struct {
	mu sync.Mutex

	runStatus   int32 // atomic RunStatus
	activeCount int32 // atomic

	slots   []Slot
	appVars map[string]AppVar

	// key is the derived identity of this region; it exists so two Region
	// instances built from the same lock-file path are recognizably "the
	// same" region, mirroring a real shm segment keyed the same way.
	key uint64
}

// DeriveKey derives a stable identity from a lock-file path and a
// single-byte project id, the same scheme a real IPC key derivation would
// use so that recreating the supervisor against the same lock-file path
// would collide with a stale instance's shared memory.
func DeriveKey(lockFilePath string, projectID byte) uint64 {
	h := sha1.New()
	h.Write([]byte(lockFilePath))
	h.Write([]byte{projectID})
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// NewRegion allocates a Region with maxWorkers unoccupied slots.
func NewRegion(key uint64, maxWorkers int) *Region {
	slots := make([]Slot, maxWorkers)
	for i := range slots {
		slots[i] = Slot{Index: i}
	}
	return &Region{
		key:       key,
		runStatus: int32(StatusRun),
		slots:     slots,
		appVars:   make(map[string]AppVar),
	}
}

// Key returns this region's derived identity.
func (r *Region) Key() uint64 { return r.key }

// Lock acquires the region's mutex. Callers performing a multi-field
// mutation, or a snapshot read across fields, must hold it for the full
// operation.
func (r *Region) Lock() { r.mu.Lock() }

// Unlock releases the region's mutex.
func (r *Region) Unlock() { r.mu.Unlock() }

// WithLock runs fn with the region's mutex held.
func (r *Region) WithLock(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// RunStatus returns the current run status. Safe to call without holding
// the lock; it is a single-field read.
func (r *Region) RunStatus() RunStatus {
	return RunStatus(atomic.LoadInt32(&r.runStatus))
}

// SetRunStatus transitions the run status. Per spec, the only legal
// transition is RUN -> TERMINATE; setting TERMINATE a second time, or
// setting RUN once TERMINATE has been observed, is a silent no-op so the
// flag stays monotonic for the region's lifetime.
func (r *Region) SetRunStatus(s RunStatus) {
	if s == StatusRun {
		atomic.CompareAndSwapInt32(&r.runStatus, int32(StatusRun), int32(StatusRun))
		return
	}
	atomic.StoreInt32(&r.runStatus, int32(StatusTerminate))
}

// ActiveCount returns the current active worker count. Lock-free single
// field read.
func (r *Region) ActiveCount() int {
	return int(atomic.LoadInt32(&r.activeCount))
}

// IncActiveCount must be called under Lock.
func (r *Region) IncActiveCount() { atomic.AddInt32(&r.activeCount, 1) }

// DecActiveCount must be called under Lock.
func (r *Region) DecActiveCount() { atomic.AddInt32(&r.activeCount, -1) }

// Slots returns a copy of the slot table. Must be called under Lock for a
// consistent snapshot across the whole table.
func (r *Region) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// SlotLen returns the current slot table length. Must be called under Lock
// if used alongside other slot-table reads/writes in one logical
// operation.
func (r *Region) SlotLen() int { return len(r.slots) }

// SlotOccupied reports whether the slot at index is occupied. Caller must
// hold Lock.
func (r *Region) SlotOccupied(index int) bool {
	return r.slots[index].Occupied
}

// SetSlotOccupied marks the slot at index occupied/unoccupied. Caller must
// hold Lock.
func (r *Region) SetSlotOccupied(index int, occupied bool) {
	r.slots[index].Occupied = occupied
}

// GrowSlots appends n unoccupied slots. Caller must hold Lock.
func (r *Region) GrowSlots(n int) {
	base := len(r.slots)
	for i := 0; i < n; i++ {
		r.slots = append(r.slots, Slot{Index: base + i})
	}
}

// CompactSlots removes trailing unoccupied slots down to at most
// maxWorkers, per spec's slot-table shrinkage policy: occupied entries
// past the new cap persist until their worker exits, and compaction is
// retried implicitly on the next release. Caller must hold Lock.
func (r *Region) CompactSlots(maxWorkers int) {
	for len(r.slots) > maxWorkers && !r.slots[len(r.slots)-1].Occupied {
		r.slots = r.slots[:len(r.slots)-1]
	}
}

// FreeSlot scans the slot table in index order and returns the index of
// the first unoccupied slot, or -1 if none exists. Caller must hold Lock.
func (r *Region) FreeSlot() int {
	for i := range r.slots {
		if !r.slots[i].Occupied {
			return i
		}
	}
	return -1
}

// snapshot is the plain-data view of a Region used only for dumping.
type snapshot struct {
	Key         uint64
	RunStatus   RunStatus
	ActiveCount int
	Slots       []Slot
	AppVars     map[string]AppVar
}

// Dump renders a full snapshot of the region with go-spew, for DAEMON-level
// trace logging when diagnosing a dispatcher that looks stuck. Must be
// called under Lock for a consistent multi-field view.
func (r *Region) Dump() string {
	s := snapshot{
		Key:         r.key,
		RunStatus:   r.RunStatus(),
		ActiveCount: r.ActiveCount(),
		Slots:       r.Slots(),
		AppVars:     r.appVars,
	}
	return spew.Sdump(s)
}
