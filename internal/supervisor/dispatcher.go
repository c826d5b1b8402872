package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daniel-kadosh/JobDaemon/internal/app"
	"github.com/daniel-kadosh/JobDaemon/internal/applog"
	"github.com/daniel-kadosh/JobDaemon/internal/ipc"
	"github.com/daniel-kadosh/JobDaemon/internal/signalintake"
	"github.com/daniel-kadosh/JobDaemon/internal/worker"
)

// slotExit is posted to the dispatcher's reap channel whenever a worker
// process this dispatcher launched finishes, successfully or not.
type slotExit struct {
	slot     int
	pid      int
	exitCode int
}

// Dispatcher is the single-threaded scheduler state machine: it reaps
// finished workers, services the signal latch, waits for a free slot, asks
// the application for the next job, and launches a worker to run it.
//
// Workers here are re-exec'd OS processes rather than forked copies of the
// supervisor's address space, so the supervisor-local PID map the source
// keeps is, in this rewrite, the single source of truth for which slots
// are occupied and by what process — the IPC region's slot table mirrors
// it for the application control surface's benefit, but every write to
// occupancy originates from the dispatcher, never from a worker. All
// mutation and iteration of that map — including the dispatcher's own Run
// loop — goes through pidsMu, because ControlSurface.WorkerStats reads it
// from whatever goroutine the embedding application calls it from.
type Dispatcher struct {
	cfg      *Config
	region   *ipc.Region
	intake   *signalintake.Intake
	launcher worker.Launcher
	appln    app.Application
	log      *applog.Logger

	pidsMu      sync.Mutex
	pids        map[int]*worker.Process
	launchIDs   map[int]string
	reapCh      chan slotExit
	terminating bool

	// control is bound by Supervisor.Start once the control surface
	// exists, purely so Run can log a Debug2 resource read-out through
	// the same ControlSurface.WorkerStats path the embedding application
	// uses, rather than reading d.stats() by a second route. Nil in tests
	// that build a Dispatcher directly; logging is simply skipped then.
	control *ControlSurface
}

// bindControl attaches the control surface Run logs worker stats through.
// Called once, by Supervisor.Start, after both it and the dispatcher exist.
func (d *Dispatcher) bindControl(c *ControlSurface) {
	d.control = c
}

// NewDispatcher wires the pieces the lifecycle controller assembled into a
// runnable dispatcher.
func NewDispatcher(cfg *Config, region *ipc.Region, intake *signalintake.Intake, launcher worker.Launcher, appln app.Application, log *applog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		region:    region,
		intake:    intake,
		launcher:  launcher,
		appln:     appln,
		log:       log,
		pids:      make(map[int]*worker.Process),
		launchIDs: make(map[int]string),
		reapCh:    make(chan slotExit, cfg.MaxWorkers*2+4),
	}
}

// Run executes the dispatcher loop until graceful shutdown or a loop-fatal
// condition, then drains remaining workers and returns. The returned error
// is non-nil only for a loop-fatal condition; graceful termination (TERM,
// QUIT, get_next_job error, or launch failure) returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.reapFinished()
		d.processSignalLatch()

		for !d.terminating && !d.hasFreeSlot() {
			woke, fatal := d.waitForExitOrSignal(ctx)
			if fatal != nil {
				return fatal
			}
			if woke {
				break
			}
		}

		if d.terminating {
			d.region.SetRunStatus(ipc.StatusTerminate)
			d.waitAllWorkers()
			return nil
		}

		latchNonEmpty := d.intake.Latch().Peek() != signalintake.None
		if latchNonEmpty {
			continue
		}

		slot, ok := d.assignSlot()
		if !ok {
			continue
		}

		job, err := d.appln.GetNextJob(ctx, slot)
		if err != nil {
			d.log.Warnf("get_next_job (%s): %v", KindGracefulTerminate, err)
			d.releaseSlot(slot, 0)
			d.terminating = true
			continue
		}
		if job == nil {
			d.releaseSlot(slot, 0)
			if !d.terminating {
				time.Sleep(d.cfg.IdleSleep)
			}
			continue
		}

		if err := d.launch(ctx, slot, job); err != nil {
			d.log.Errorf("launch slot %d (%s): %v", slot, KindGracefulTerminate, err)
			d.releaseSlot(slot, 0)
			d.terminating = true
			continue
		}
		d.logWorkerStats(slot)

		time.Sleep(settlingPause)
	}
}

// hasFreeSlot mirrors ControlSurface.HasFreeSlot's availability check:
// active_count < max_workers, the predicate that actually bounds
// dispatch (§3's "active_count never exceeds max_workers" invariant), not
// merely "some table entry happens to be unoccupied" — those diverge
// whenever max_workers has just shrunk below an occupied over-cap slot.
func (d *Dispatcher) hasFreeSlot() bool {
	return d.region.ActiveCount() < d.cfg.MaxWorkers
}

// assignSlot reserves the first free slot index, growing the table if
// max_workers has grown since init. Returns ok=false if no slot is
// available — either every table entry is occupied, or active_count has
// already reached max_workers (e.g. max_workers shrank out from under an
// occupied over-cap slot table, where Region.FreeSlot would otherwise
// happily hand back the unoccupied slot CompactSlots couldn't trim).
func (d *Dispatcher) assignSlot() (int, bool) {
	var slot int
	found := false
	d.region.WithLock(func() {
		if want := d.cfg.MaxWorkers - d.region.SlotLen(); want > 0 {
			d.region.GrowSlots(want)
		}
		if d.region.ActiveCount() >= d.cfg.MaxWorkers {
			return
		}
		slot = d.region.FreeSlot()
		if slot >= 0 {
			found = true
			d.region.SetSlotOccupied(slot, true)
			d.region.IncActiveCount()
		}
	})
	if found {
		d.pidsMu.Lock()
		d.pids[slot] = nil
		d.pidsMu.Unlock()
	}
	return slot, found
}

// releaseSlot clears occupancy for slot and compacts the table. exitCode
// is informational only (logging).
func (d *Dispatcher) releaseSlot(slot int, exitCode int) {
	d.region.WithLock(func() {
		d.region.SetSlotOccupied(slot, false)
		d.region.DecActiveCount()
		d.region.CompactSlots(d.cfg.MaxWorkers)
	})
	d.pidsMu.Lock()
	delete(d.pids, slot)
	delete(d.launchIDs, slot)
	d.pidsMu.Unlock()
}

// launch encodes job, starts a worker process for slot, and arranges for
// its exit to be reported on reapCh. Each launch is tagged with a UUID
// purely for log correlation — stitching a slot's "launched" and "exited"
// lines together across a busy log is otherwise guesswork once a slot has
// cycled through several workers.
func (d *Dispatcher) launch(ctx context.Context, slot int, job app.Job) error {
	payload, err := d.appln.EncodeJob(job)
	if err != nil {
		return err
	}
	proc, err := d.launcher.Launch(ctx, slot, payload)
	if err != nil {
		return err
	}
	launchID := uuid.New().String()
	d.pidsMu.Lock()
	d.pids[slot] = proc
	d.launchIDs[slot] = launchID
	d.pidsMu.Unlock()
	d.log.Infof("launched slot %d (pid %d) launch_id=%s", slot, proc.Pid(), launchID)
	go func() {
		<-proc.Done()
		d.reapCh <- slotExit{slot: slot, pid: proc.Pid(), exitCode: proc.ExitCode()}
	}()
	return nil
}

// logWorkerStats emits a Debug2-level gopsutil read-out for slot through
// ControlSurface.WorkerStats, the spec's documented entry point for this
// telemetry. A miss (process exited already, or gopsutil couldn't read it)
// is silently skipped; this is best-effort visibility, not a control path.
func (d *Dispatcher) logWorkerStats(slot int) {
	if d.control == nil {
		return
	}
	stat, ok := d.control.WorkerStats(slot)
	if !ok {
		return
	}
	d.log.Debug2f("slot %d stats: pid=%d rss=%d cpu=%.2f%%", stat.Slot, stat.PID, stat.RSSBytes, stat.CPUPercent)
}

// reapFinished drains every pending exit notification without blocking.
// A pending send on reapCh that never arrives (a worker that is still
// running) is simply absent; this never blocks because the channel is
// only ever written to by the goroutine launch started, and reads here
// never wait.
func (d *Dispatcher) reapFinished() {
	for {
		select {
		case exit := <-d.reapCh:
			d.reportExit(exit, "")
		default:
			return
		}
	}
}

// reportExit logs a worker's exit, tagged with its launch correlation ID if
// still known, and releases its slot. suffix is appended verbatim (e.g.
// " (draining)" during the terminal wait-all phase).
func (d *Dispatcher) reportExit(exit slotExit, suffix string) {
	d.pidsMu.Lock()
	launchID := d.launchIDs[exit.slot]
	d.pidsMu.Unlock()
	d.log.Infof("worker slot %d (pid %d) exited code=%d launch_id=%s%s", exit.slot, exit.pid, exit.exitCode, launchID, suffix)
	d.releaseSlot(exit.slot, exit.exitCode)
}

// waitForExitOrSignal blocks until a worker exits, a signal wakes the
// latch, or reapPollTick elapses, whichever comes first — the dispatcher's
// analogue of a 100µs-polled blocking wait. woke is true if the caller
// should break out of the free-slot wait loop and re-run a full pass.
func (d *Dispatcher) waitForExitOrSignal(ctx context.Context) (woke bool, fatal error) {
	select {
	case exit := <-d.reapCh:
		d.reportExit(exit, "")
		return true, nil
	case <-d.intake.Latch().Wake():
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(reapPollTick):
		return false, nil
	}
}

// waitAllWorkers blocks until every known worker process has exited,
// draining reap notifications as they arrive. This is the terminal
// "wait_all_workers_blocking" phase; there is no timeout, matching §5's
// cooperative-shutdown contract.
func (d *Dispatcher) waitAllWorkers() {
	for d.pidsLen() > 0 {
		exit := <-d.reapCh
		d.reportExit(exit, " (draining)")
	}
}

// pidsLen returns the number of slots this dispatcher currently has a
// tracked process handle for (reserved or running).
func (d *Dispatcher) pidsLen() int {
	d.pidsMu.Lock()
	defer d.pidsMu.Unlock()
	return len(d.pids)
}

// snapshotPIDs returns a point-in-time copy of slot -> live process handle,
// omitting slots whose handle is still nil (reserved but not yet launched).
// Safe to call from any goroutine; used by both relayToAll and
// ControlSurface.WorkerStats so neither iterates the live map directly.
func (d *Dispatcher) snapshotPIDs() map[int]*worker.Process {
	d.pidsMu.Lock()
	defer d.pidsMu.Unlock()
	out := make(map[int]*worker.Process, len(d.pids))
	for slot, proc := range d.pids {
		if proc != nil {
			out[slot] = proc
		}
	}
	return out
}

// processSignalLatch implements §4.4's processing semantics and clears the
// latch afterward. It never blocks.
func (d *Dispatcher) processSignalLatch() {
	kind := d.intake.Latch().Peek()
	if kind == signalintake.None {
		return
	}
	defer d.intake.Latch().Clear()
	d.traceRegion()

	switch kind {
	case signalintake.Term, signalintake.Quit:
		d.terminating = true
		if d.cfg.PropagateSignals {
			d.relayToAll(kind)
		}
	case signalintake.Hup:
		if err := d.appln.LoadConfig(); err != nil {
			d.log.Warnf("load_config on HUP: %v", err)
		}
		if d.cfg.PropagateSignals {
			d.relayToAll(kind)
		}
	default:
		if d.cfg.PropagateSignals {
			d.relayToAll(kind)
		}
	}
}

// traceRegion emits a full go-spew dump of the IPC region at DAEMON level,
// the supervisor-internal trace channel spec's logging contract reserves
// for this kind of dispatcher-only diagnostic.
func (d *Dispatcher) traceRegion() {
	d.region.WithLock(func() {
		d.log.Daemonf("region snapshot:\n%s", d.region.Dump())
	})
}

// relayToAll sends kind's signal to every tracked worker, retrying once
// after a short gap on failure before giving up on that one worker and
// continuing with the rest — the Transient policy from §7.
func (d *Dispatcher) relayToAll(kind signalintake.Kind) {
	for slot, proc := range d.snapshotPIDs() {
		var err error
		for attempt := 0; attempt < sigRelayRetries; attempt++ {
			err = relaySignal(proc.Pid(), kind)
			if err == nil {
				break
			}
			time.Sleep(sigRelayGap)
		}
		if err != nil {
			d.log.Warnf("relay signal to slot %d (pid %d) failed: %v", slot, proc.Pid(), err)
		}
	}
}
