package supervisor

import (
	"io"
	"testing"

	"github.com/daniel-kadosh/JobDaemon/internal/applog"
	"github.com/daniel-kadosh/JobDaemon/internal/ipc"
)

// newTestDispatcher builds a Dispatcher wired to a real signal intake
// (newTestIntake, over the package's own DefaultHandledSignals) so
// signal.Notify never falls back to its "no signals listed" catch-all
// behavior. Slot-table tests never actually deliver a signal.
func newTestDispatcher(maxWorkers int) *Dispatcher {
	cfg := &Config{MaxWorkers: maxWorkers}
	cfg.Normalize()
	region := ipc.NewRegion(1, maxWorkers)
	intake := newTestIntake()
	log := applog.New(io.Discard, applog.Error)
	return NewDispatcher(cfg, region, intake, nil, nil, log)
}

func TestAssignSlotFirstIndexWins(t *testing.T) {
	d := newTestDispatcher(3)
	s0, ok := d.assignSlot()
	if !ok || s0 != 0 {
		t.Fatalf("first assignSlot = %d, %v, want 0, true", s0, ok)
	}
	s1, ok := d.assignSlot()
	if !ok || s1 != 1 {
		t.Fatalf("second assignSlot = %d, %v, want 1, true", s1, ok)
	}
}

func TestAssignSlotNoneWhenFull(t *testing.T) {
	d := newTestDispatcher(1)
	if _, ok := d.assignSlot(); !ok {
		t.Fatal("first assignSlot should have succeeded")
	}
	if _, ok := d.assignSlot(); ok {
		t.Fatal("assignSlot succeeded with no free slot")
	}
}

func TestAssignSlotGrowsTableWhenCapRaised(t *testing.T) {
	d := newTestDispatcher(1)
	d.assignSlot() // occupy the only slot
	d.cfg.MaxWorkers = 2
	slot, ok := d.assignSlot()
	if !ok || slot != 1 {
		t.Fatalf("assignSlot after raising cap = %d, %v, want 1, true", slot, ok)
	}
}

func TestReleaseSlotCompactsTrailingUnoccupied(t *testing.T) {
	d := newTestDispatcher(1)
	d.assignSlot()
	d.cfg.MaxWorkers = 3
	s2, _ := d.assignSlot() // grows to len 3, occupies slot 1... actually next free after slot0
	_ = s2
	d.cfg.MaxWorkers = 1
	// Release every occupied slot; compaction should bring the table back
	// down to length 1 once nothing occupied remains past the cap.
	d.releaseSlot(0, 0)
	d.releaseSlot(1, 0)
	if got := d.region.SlotLen(); got != 1 {
		t.Fatalf("SlotLen after draining over-cap slots = %d, want 1", got)
	}
}

func TestReleaseSlotLeavesOccupiedOverCapSlotsUntilDrained(t *testing.T) {
	d := newTestDispatcher(2)
	d.assignSlot()
	d.assignSlot()
	d.cfg.MaxWorkers = 1
	// Releasing only slot 0 must not kill or evict the still-occupied
	// slot 1; the slot-shrinkage policy never force-drains a worker.
	d.releaseSlot(0, 0)
	if got := d.region.SlotLen(); got != 2 {
		t.Fatalf("SlotLen = %d after releasing one of two over-cap slots, want 2 until the other drains too", got)
	}
	if !d.region.SlotOccupied(1) {
		t.Fatal("slot 1 should still be occupied (shrink policy never evicts)")
	}
}

func TestHasFreeSlotMatchesActiveCount(t *testing.T) {
	d := newTestDispatcher(1)
	if !d.hasFreeSlot() {
		t.Fatal("hasFreeSlot() = false with no active workers")
	}
	d.assignSlot()
	if d.hasFreeSlot() {
		t.Fatal("hasFreeSlot() = true at full capacity")
	}
}

// TestAssignSlotRefusesWhenActiveCountAtCapDespiteUnoccupiedEntry is the
// regression case for the max=3→1 shrink scenario: releasing one of three
// over-cap occupied slots leaves an unoccupied table entry CompactSlots
// cannot trim (it only trims trailing entries), but active_count is still
// above the shrunk cap. assignSlot must refuse despite Region.FreeSlot
// happily returning that unoccupied index.
func TestAssignSlotRefusesWhenActiveCountAtCapDespiteUnoccupiedEntry(t *testing.T) {
	d := newTestDispatcher(3)
	d.assignSlot()
	d.assignSlot()
	d.assignSlot()
	d.cfg.MaxWorkers = 1
	d.releaseSlot(0, 0)
	if got := d.region.SlotLen(); got != 3 {
		t.Fatalf("SlotLen = %d after releasing one of three over-cap slots, want 3 (trailing occupied entries block compaction)", got)
	}
	if d.region.ActiveCount() != 2 {
		t.Fatalf("ActiveCount = %d, want 2", d.region.ActiveCount())
	}
	if d.hasFreeSlot() {
		t.Fatal("hasFreeSlot() = true with active_count(2) >= max_workers(1)")
	}
	if _, ok := d.assignSlot(); ok {
		t.Fatal("assignSlot succeeded despite active_count already at/above max_workers")
	}
}
