//go:build !windows

package daemon

import (
	"os"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
)

// Acquire takes ownership of the lock file, removing a stale one left
// behind by a supervisor instance that no longer exists. A lock file is
// stale when its recorded PID doesn't resolve to a live process. A PID
// that exists but belongs to a user this process can't signal (EPERM)
// counts as live, and Acquire refuses with ErrAlreadyRunning.
//
// When called inside the re-exec'd daemonized child (daemonizeEnv set),
// Acquire instead adopts the flock'd descriptor Daemonize passed down via
// ExtraFiles/lockFDEnv: the pre-daemonize process already validated and
// locked this path, and re-running the open+flock dance here would race
// that process's own exit instead of continuing as its sole successor.
func (l *LockFile) Acquire() error {
	if os.Getenv(daemonizeEnv) == "1" {
		if fdStr := os.Getenv(lockFDEnv); fdStr != "" {
			fd, err := strconv.Atoi(fdStr)
			if err == nil {
				l.file = os.NewFile(uintptr(fd), l.path)
				os.Unsetenv(lockFDEnv)
				return nil
			}
		}
	}

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

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open lock file %s", l.path)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return errors.Wrapf(ErrAlreadyRunning, "flock %s: %v", l.path, err)
	}
	l.file = f
	return nil
}

// Release drops the flock and removes the lock file. Safe to call more
// than once.
func (l *LockFile) Release() error {
	if l.file != nil {
		syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
		l.file.Close()
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove lock file %s", l.path)
	}
	return nil
}

// probeLive sends the null signal to pid: delivery succeeds (no error) if
// the process exists and is signalable, fails with ESRCH if it's gone, and
// fails with EPERM if it exists but belongs to another user — EPERM still
// counts as "live" since the process plainly exists.
func probeLive(pid int) (bool, error) {
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	if err == syscall.ESRCH {
		return false, nil
	}
	if err == syscall.EPERM {
		return true, nil
	}
	return false, err
}
