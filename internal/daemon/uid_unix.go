//go:build !windows

package daemon

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// SwitchUser chown's the lock file to uid then switches the process's
// effective (and real) UID to it. If the switch fails, the lock file must
// be removed before aborting startup — the caller is responsible for that
// via the returned error path in supervisor.Supervisor.Start.
func SwitchUser(lock *LockFile, uid int) error {
	if uid == os.Geteuid() {
		return nil
	}
	if err := lock.Chown(uid); err != nil {
		return errors.Wrapf(err, "chown lock file to uid %d", uid)
	}
	if err := syscall.Setuid(uid); err != nil {
		return errors.Wrapf(err, "setuid %d", uid)
	}
	return nil
}
