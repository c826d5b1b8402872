//go:build !windows

package supervisor

import (
	"os"
	"syscall"

	"github.com/daniel-kadosh/JobDaemon/internal/signalintake"
)

// DefaultHandledSignals maps the signals spec.md names — TERM, QUIT, HUP —
// to their intake Kind.
func DefaultHandledSignals() map[os.Signal]signalintake.Kind {
	return map[os.Signal]signalintake.Kind{
		syscall.SIGTERM: signalintake.Term,
		syscall.SIGQUIT: signalintake.Quit,
		syscall.SIGHUP:  signalintake.Hup,
	}
}

// relaySignal sends the Kind's corresponding OS signal to pid.
func relaySignal(pid int, kind signalintake.Kind) error {
	var sig syscall.Signal
	switch kind {
	case signalintake.Term:
		sig = syscall.SIGTERM
	case signalintake.Quit:
		sig = syscall.SIGQUIT
	case signalintake.Hup:
		sig = syscall.SIGHUP
	default:
		return nil
	}
	return syscall.Kill(pid, sig)
}
