package supervisor

import (
	"time"

	"github.com/daniel-kadosh/JobDaemon/internal/ipc"
)

// ControlSurface is the set of operations §4.6 exposes to the embedding
// application. It is a thin, mutex-respecting view over a Dispatcher's
// Config and Region — safe to call concurrently with the dispatcher loop
// itself from, say, an application's load_config hook or a CLI command
// running inside the same process.
type ControlSurface struct {
	cfg    *Config
	region *ipc.Region

	// dispatcher backs WorkerStats/AllWorkerStats; it is nil until
	// bindDispatcher runs (Supervisor.Start wires it in once the
	// dispatcher exists, since the control surface is constructed first).
	dispatcher *Dispatcher
}

// NewControlSurface builds the control surface over cfg and region.
func NewControlSurface(cfg *Config, region *ipc.Region) *ControlSurface {
	return &ControlSurface{cfg: cfg, region: region}
}

// bindDispatcher attaches the dispatcher WorkerStats/AllWorkerStats read
// from. Called once, by Supervisor.Start, after the dispatcher is built.
func (c *ControlSurface) bindDispatcher(d *Dispatcher) {
	c.dispatcher = d
}

// WorkerStats returns a gopsutil resource snapshot (RSS, CPU%) for the
// worker currently occupying slot, if any and if gopsutil could read it.
// Read-only: the core has no resource-limit concept for this reading to
// enforce against.
func (c *ControlSurface) WorkerStats(slot int) (WorkerStats, bool) {
	if c.dispatcher == nil {
		return WorkerStats{}, false
	}
	for _, s := range c.dispatcher.stats() {
		if s.Slot == slot {
			return s, true
		}
	}
	return WorkerStats{}, false
}

// AllWorkerStats returns a resource snapshot for every slot with a live
// worker process, in no particular order.
func (c *ControlSurface) AllWorkerStats() []WorkerStats {
	if c.dispatcher == nil {
		return nil
	}
	return c.dispatcher.stats()
}

// SetMaxWorkers applies n if n >= 1; otherwise it is a silent no-op and the
// prior value is retained, per spec's boundary rule for set_max_workers(0).
// Growing the slot table to match a raised cap happens lazily, the next
// time the dispatcher assigns a slot, so this never needs to hold the
// region's lock.
func (c *ControlSurface) SetMaxWorkers(n int) {
	if n < 1 {
		return
	}
	c.cfg.MaxWorkers = n
}

// GetMaxWorkers returns the current cap.
func (c *ControlSurface) GetMaxWorkers() int { return c.cfg.MaxWorkers }

// SetIdleSleep clamps µs to a 100µs minimum before storing it.
func (c *ControlSurface) SetIdleSleep(us int64) {
	d := time.Duration(us) * time.Microsecond
	if d < minIdleSleep {
		d = minIdleSleep
	}
	c.cfg.IdleSleep = d
}

// SetPropagateSignals toggles whether received signals are relayed to
// worker processes.
func (c *ControlSurface) SetPropagateSignals(enabled bool) {
	c.cfg.PropagateSignals = enabled
}

// GetAppVar reads a value from the region's application key/value map.
func (c *ControlSurface) GetAppVar(name string, lock bool) (ipc.AppVar, bool) {
	return c.region.GetAppVar(name, lock)
}

// SetAppVar writes a value into the region's application key/value map.
func (c *ControlSurface) SetAppVar(name string, v ipc.AppVar, lock bool) {
	c.region.SetAppVar(name, v, lock)
}

// GetRunStatus reads the region's termination flag.
func (c *ControlSurface) GetRunStatus() ipc.RunStatus {
	return c.region.RunStatus()
}

// SetRunStatus writes the region's termination flag. Per the region's own
// contract this is monotonic: once TERMINATE is observed, RUN can never be
// restored.
func (c *ControlSurface) SetRunStatus(s ipc.RunStatus) {
	c.region.SetRunStatus(s)
}

// GetRunningWorkers reads active_count.
func (c *ControlSurface) GetRunningWorkers() int {
	return c.region.ActiveCount()
}

// HasFreeSlot reports whether active_count < max_workers.
func (c *ControlSurface) HasFreeSlot() bool {
	return c.region.ActiveCount() < c.cfg.MaxWorkers
}

// GetPIDFile returns the lock-file path.
func (c *ControlSurface) GetPIDFile() string {
	return c.cfg.PIDFilePath
}
