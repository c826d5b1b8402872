package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LockFile enforces at-most-one-supervisor-per-path semantics. The file
// exists iff the supervisor that created it still considers itself the
// live instance; its content is the owning PID as decimal text, no
// trailing newline required.
type LockFile struct {
	path string
	file *os.File
}

// NewLockFile returns a LockFile bound to path. It does not touch the
// filesystem.
func NewLockFile(path string) *LockFile {
	return &LockFile{path: path}
}

// Path returns the lock file's configured path.
func (l *LockFile) Path() string { return l.path }

// File returns the open, locked *os.File backing this LockFile, or nil if
// Acquire has not run. Daemonize uses this to hand the already-locked
// descriptor to the re-exec'd child via ExtraFiles, so the flock has a
// single continuous owner across the exec boundary instead of the child
// racing to re-acquire a lock the pre-daemonize process is about to drop.
func (l *LockFile) File() *os.File { return l.file }

// ErrAlreadyRunning is returned by Acquire when a live supervisor already
// owns the lock file.
var ErrAlreadyRunning = errors.New("another supervisor instance is already running")

// WritePID truncates the lock file and writes pid as decimal text. This is
// the "record identity" step of daemonization, run after the final PID
// (the detached child's) is known.
func (l *LockFile) WritePID(pid int) error {
	if l.file == nil {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return errors.Wrapf(err, "reopen lock file %s", l.path)
		}
		l.file = f
	}
	if err := l.file.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate lock file")
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return errors.Wrap(err, "seek lock file")
	}
	if _, err := fmt.Fprintf(l.file, "%d", pid); err != nil {
		return errors.Wrap(err, "write pid to lock file")
	}
	return l.file.Sync()
}

// Chown changes the lock file's owner to uid (the configured effective
// user to switch to). A no-op concept on Windows; SwitchUser never calls
// it there.
func (l *LockFile) Chown(uid int) error {
	return os.Chown(l.path, uid, -1)
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, false
	}
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
