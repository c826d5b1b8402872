//go:build windows

package daemon

import "github.com/pkg/errors"

// Daemonize is not supported on Windows: there is no controlling-terminal
// detach/session-leader model to replicate. Callers on Windows should use
// the foreground "run" CLI verb under a service manager (e.g. NSSM) instead.
func Daemonize(logPath string, lock *LockFile) error {
	return errors.New("daemonize is not supported on windows; use the foreground run command under a service manager")
}
