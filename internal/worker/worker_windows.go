//go:build windows

package worker

import (
	"os/exec"
	"time"
)

// applyPlatformAttrs is a no-op on Windows; process groups work differently
// there and job objects would be the idiomatic replacement, which is out of
// scope here (see cluster/worker_windows.go for the same call made by the
// teacher's own Windows build).
func applyPlatformAttrs(cmd *exec.Cmd) {}

// watchOrphan has no cheap getppid-based analogue on Windows (there is no
// init-reparenting model), so it never fires. A production build would use
// a Job Object with JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE instead.
func watchOrphan(stop <-chan struct{}, interval time.Duration) {
	<-stop
}
