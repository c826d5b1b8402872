//go:build windows

package supervisor

import (
	"os"

	"github.com/daniel-kadosh/JobDaemon/internal/signalintake"
)

// DefaultHandledSignals maps the signals supported on Windows — only
// os.Interrupt has a real analogue — to their intake Kind.
func DefaultHandledSignals() map[os.Signal]signalintake.Kind {
	return map[os.Signal]signalintake.Kind{
		os.Interrupt: signalintake.Term,
	}
}

// relaySignal on Windows can only request a polite interrupt; there is no
// QUIT/HUP analogue, so those kinds are no-ops.
func relaySignal(pid int, kind signalintake.Kind) error {
	if kind != signalintake.Term {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(os.Interrupt)
}
