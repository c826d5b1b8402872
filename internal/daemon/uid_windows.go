//go:build windows

package daemon

import "github.com/pkg/errors"

// SwitchUser is not supported on Windows; there is no POSIX setuid model.
func SwitchUser(lock *LockFile, uid int) error {
	if uid == 0 {
		return nil
	}
	return errors.New("uid switching is not supported on windows")
}
