// Package supervisor implements the core of the system: the dispatcher
// loop, the application control surface, and the Supervisor type that
// ties the lifecycle controller, IPC region, signal intake, and worker
// launcher together into one running daemon.
package supervisor

import (
	"os"
	"time"

	"github.com/daniel-kadosh/JobDaemon/internal/signalintake"
)

const (
	minIdleSleep    = 100 * time.Microsecond
	settlingPause   = 20 * time.Microsecond
	reapPollTick    = 100 * time.Microsecond
	sigRelayRetries = 2
	sigRelayGap     = time.Millisecond
)

// Config is the SupervisorConfig entity from the data model: everything
// needed to start the daemon, plus the knobs the control surface mutates
// at runtime.
type Config struct {
	// MaxWorkers bounds the worker pool. Must be >= 1.
	MaxWorkers int
	// IdleSleep is how long the dispatcher sleeps after GetNextJob
	// returns nothing. Clamped to a 100µs minimum.
	IdleSleep time.Duration
	// NoSlotSleep is loaded from config and defaulted by Normalize, but the
	// dispatcher does not read it: its free-slot wait wakes on a worker
	// exit or a signal, with the fixed reapPollTick as the backstop.
	NoSlotSleep time.Duration
	// PropagateSignals controls whether TERM/QUIT/HUP are relayed to worker
	// processes. Signals latched as signalintake.Other are not relayed.
	PropagateSignals bool
	// HandledSignals maps OS signals to the Kind the intake records for
	// them. Defaults to TERM/QUIT/HUP if nil.
	HandledSignals map[os.Signal]signalintake.Kind
	// UID, if non-nil, is the effective user the daemon switches to after
	// daemonizing.
	UID *int
	// PIDFilePath is the lock-file path enforcing single-instance
	// semantics. Defaults to /var/run/<name>.pid if empty (set by the
	// caller, since the daemon name is application-defined).
	PIDFilePath string
	// LogPath is where daemonized stdout/stderr are redirected. Empty
	// means /dev/null.
	LogPath string
}

// Normalize applies defaults and clamps: an IdleSleep below 100µs is
// raised to 100µs, a non-positive NoSlotSleep becomes 100µs, a MaxWorkers
// below 1 is raised to 1 (there is no prior value to keep at this point;
// ControlSurface.SetMaxWorkers is what refuses values below 1 at runtime),
// and a nil HandledSignals gets the default set.
func (c *Config) Normalize() {
	if c.IdleSleep < minIdleSleep {
		c.IdleSleep = minIdleSleep
	}
	if c.NoSlotSleep <= 0 {
		c.NoSlotSleep = minIdleSleep
	}
	if c.MaxWorkers < 1 {
		c.MaxWorkers = 1
	}
	if c.HandledSignals == nil {
		c.HandledSignals = DefaultHandledSignals()
	}
}
