//go:build windows

package daemon

import (
	"os"

	"github.com/pkg/errors"
)

// Acquire takes ownership of the lock file. Windows has no flock/fcntl
// equivalent in the standard syscall package, so exclusivity rests on the
// PID-liveness check alone plus O_EXCL create of a fresh file; daemonize
// itself already refuses to run here (see daemonize_windows.go), so this
// path only matters for the foreground run command.
func (l *LockFile) Acquire() error {
	if pid, ok := readPID(l.path); ok {
		live, err := probeLive(pid)
		if err != nil {
			return errors.Wrapf(err, "probe existing lock holder pid %d", pid)
		}
		if live {
			return errors.Wrapf(ErrAlreadyRunning, "pid %d (lock file %s)", pid, l.path)
		}
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove stale lock file %s", l.path)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open lock file %s", l.path)
	}
	l.file = f
	return nil
}

// Release closes and removes the lock file. Safe to call more than once.
func (l *LockFile) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove lock file %s", l.path)
	}
	return nil
}

// probeLive reports whether pid names a still-running process. Windows
// offers no null-signal probe; os.FindProcess opens a real handle on this
// platform and fails if the process doesn't exist, so a successful open
// is treated as live.
func probeLive(pid int) (bool, error) {
	_, err := os.FindProcess(pid)
	return err == nil, nil
}
