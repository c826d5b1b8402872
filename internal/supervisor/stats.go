package supervisor

import (
	"sync"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"
)

// WorkerStats is a read-only resource snapshot for one running worker
// process. It is reported to the embedding application on request; the
// core does not enforce limits against it, unlike the cluster manager this
// is grounded on — the system this belongs to intentionally leaves
// resource policy to the application's own child_run.
type WorkerStats struct {
	Slot       int
	PID        int
	RSSBytes   uint64
	CPUPercent float64
}

// stats returns a resource snapshot for every slot this dispatcher
// currently has a live process handle for. A slot whose process has
// already exited, or whose OS stats are momentarily unavailable, is simply
// omitted rather than reported with zeroed fields. Each slot's gopsutil
// lookup is an independent syscall round-trip, so with max_workers
// comfortably above one it is worth fanning them out rather than paying
// the latency serially. Takes a point-in-time snapshot of the PID map
// rather than iterating it live, since this runs on whatever goroutine the
// embedding application calls ControlSurface.WorkerStats from, not the
// dispatcher's own.
func (d *Dispatcher) stats() []WorkerStats {
	pids := d.snapshotPIDs()
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make([]WorkerStats, 0, len(pids))
	)
	for slot, proc := range pids {
		slot, proc := slot, proc
		g.Go(func() error {
			stat, ok := workerStat(slot, proc.Pid())
			if !ok {
				return nil
			}
			mu.Lock()
			out = append(out, stat)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workerStat never returns an error; nothing to propagate
	return out
}

func workerStat(slot, pid int) (WorkerStats, bool) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return WorkerStats{}, false
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return WorkerStats{}, false
	}
	cpuPerc, err := p.CPUPercent()
	if err != nil {
		return WorkerStats{}, false
	}
	return WorkerStats{Slot: slot, PID: pid, RSSBytes: mem.RSS, CPUPercent: cpuPerc}, true
}
