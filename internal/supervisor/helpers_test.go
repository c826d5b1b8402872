package supervisor

import "github.com/daniel-kadosh/JobDaemon/internal/signalintake"

// newTestIntake builds a real signal intake over the package's default
// handled-signal set, never an empty map — signal.Notify treats "no
// signals listed" as "relay everything," which would make tests observe
// unrelated process-wide signals.
func newTestIntake() *signalintake.Intake {
	return signalintake.New(DefaultHandledSignals())
}
